package transform

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/tagpose/spatialmath"
	"go.viam.com/tagpose/utils"
)

// ErrNoIntrinsics is when a camera does not have intrinsics parameters or other parameters.
var ErrNoIntrinsics = errors.New("camera intrinsic parameters are not available")

// NewNoIntrinsicsError is used when the intriniscs are not defined.
func NewNoIntrinsicsError(msg string) error {
	return errors.Wrap(ErrNoIntrinsics, msg)
}

// approxFocalScale is the focal length of an uncalibrated camera as a fraction of the image width.
const approxFocalScale = 0.9

// approxDistortionLength is the number of (zero) coefficients of an uncalibrated camera.
const approxDistortionLength = 5

// PinholeCameraIntrinsics holds the parameters necessary to do a perspective projection of a 3D scene to the 2D plane.
type PinholeCameraIntrinsics struct {
	Width  int     `json:"width_px"`
	Height int     `json:"height_px"`
	Fx     float64 `json:"fx"`
	Fy     float64 `json:"fy"`
	Ppx    float64 `json:"ppx"`
	Ppy    float64 `json:"ppy"`
}

// CheckValid checks if the fields for PinholeCameraIntrinsics have valid inputs.
func (params *PinholeCameraIntrinsics) CheckValid() error {
	if params == nil {
		return NewNoIntrinsicsError("Intrinsics do not exist")
	}
	if params.Width <= 0 || params.Height <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid size (%#v, %#v)", params.Width, params.Height))
	}
	if params.Fx <= 0 || !utils.IsFinite(params.Fx) {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid focal length Fx = %#v", params.Fx))
	}
	if params.Fy <= 0 || !utils.IsFinite(params.Fy) {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid focal length Fy = %#v", params.Fy))
	}
	if !utils.IsFinite(params.Ppx, params.Ppy) {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid principal point (%#v, %#v)", params.Ppx, params.Ppy))
	}
	return nil
}

// CameraModel is the model of a pinhole camera with lens distortion, as used for every geometric
// computation of a frame. It is immutable once built.
type CameraModel struct {
	*PinholeCameraIntrinsics `json:"intrinsic_parameters"`
	// Skew is the (0, 1) entry of the camera matrix, zero for nearly every real camera.
	Skew float64 `json:"skew"`
	// LowerTriangle holds the (1, 0), (2, 0) and (2, 1) entries of the camera matrix. They are zero
	// unless the calibration tool produced a general projective matrix.
	LowerTriangle [3]float64 `json:"lower_triangle"`
	Distortion    Distorter  `json:"distortion"`
	Undistortion  Distorter  `json:"undistortion"`
	// Calibrated is true when the parameters were read from a calibration file rather than guessed.
	Calibrated bool `json:"calibrated"`
}

// NewCameraModel builds the model of frames of the given size from a row major camera matrix,
// used verbatim, and distortion coefficients in OpenCV order.
func NewCameraModel(width, height int, k [9]float64, coeffs []float64) (*CameraModel, error) {
	if k[8] != 1 {
		return nil, NewNoIntrinsicsError(fmt.Sprintf("camera matrix bottom-right must be 1, got %v", k[8]))
	}
	distortion, err := NewDistorter(BrownConradyDistortionType, coeffs)
	if err != nil {
		return nil, err
	}
	undistortion, err := NewDistorter(InverseBrownConradyDistortionType, coeffs)
	if err != nil {
		return nil, err
	}
	cm := &CameraModel{
		PinholeCameraIntrinsics: &PinholeCameraIntrinsics{
			Width:  width,
			Height: height,
			Fx:     k[0],
			Fy:     k[4],
			Ppx:    k[2],
			Ppy:    k[5],
		},
		Skew:          k[1],
		LowerTriangle: [3]float64{k[3], k[6], k[7]},
		Distortion:    distortion,
		Undistortion:  undistortion,
	}
	if err := cm.CheckValid(); err != nil {
		return nil, err
	}
	return cm, nil
}

// NewApproximateCameraModel synthesizes the model of an uncalibrated camera producing frames of
// the given size: fx = fy = 0.9 * width, principal point at the image center, five zero
// distortion coefficients.
func NewApproximateCameraModel(width, height int) (*CameraModel, error) {
	f := approxFocalScale * float64(width)
	return NewCameraModel(width, height, [9]float64{
		f, 0, float64(width) / 2,
		0, f, float64(height) / 2,
		0, 0, 1,
	}, make([]float64, approxDistortionLength))
}

// CheckValid checks the intrinsics and distortion of the model.
func (cm *CameraModel) CheckValid() error {
	if cm == nil {
		return NewNoIntrinsicsError("camera model does not exist")
	}
	if err := cm.PinholeCameraIntrinsics.CheckValid(); err != nil {
		return err
	}
	if !utils.IsFinite(cm.Skew, cm.LowerTriangle[0], cm.LowerTriangle[1], cm.LowerTriangle[2]) {
		return NewNoIntrinsicsError("camera matrix is not finite")
	}
	if cm.Distortion == nil || cm.Undistortion == nil {
		return InvalidDistortionError("camera model has no distortion model")
	}
	if err := cm.Distortion.CheckValid(); err != nil {
		return err
	}
	return cm.Undistortion.CheckValid()
}

// Size returns the frame size the model was built for.
func (cm *CameraModel) Size() (int, int) {
	return cm.Width, cm.Height
}

// Matrix returns the 3x3 camera matrix.
func (cm *CameraModel) Matrix() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		cm.Fx, cm.Skew, cm.Ppx,
		cm.LowerTriangle[0], cm.Fy, cm.Ppy,
		cm.LowerTriangle[1], cm.LowerTriangle[2], 1,
	})
}

// DistortionCoefficients returns the distortion coefficients as supplied.
func (cm *CameraModel) DistortionCoefficients() []float64 {
	return cm.Distortion.Parameters()
}

// ProjectPoint maps a camera frame point to pixel coordinates through the distortion and the
// camera matrix. ok is false for points on or behind the camera plane or when the result is not
// finite.
func (cm *CameraModel) ProjectPoint(pt r3.Vector) (r2.Point, bool) {
	if pt.Z <= 0 {
		return r2.Point{}, false
	}
	x, y := cm.Distortion.Transform(pt.X/pt.Z, pt.Y/pt.Z)
	w := cm.LowerTriangle[1]*x + cm.LowerTriangle[2]*y + 1
	if w <= 0 {
		return r2.Point{}, false
	}
	u := (cm.Fx*x + cm.Skew*y + cm.Ppx) / w
	v := (cm.LowerTriangle[0]*x + cm.Fy*y + cm.Ppy) / w
	if !utils.IsFinite(u, v) {
		return r2.Point{}, false
	}
	return r2.Point{X: u, Y: v}, true
}

// ProjectPoints transforms object frame points by pose and projects them to pixels. It returns
// nil if any point cannot be projected, so callers never see a partial result.
func (cm *CameraModel) ProjectPoints(pose *spatialmath.Pose, pts []r3.Vector) []r2.Point {
	if cm == nil || pose == nil || pose.Rotation == nil {
		return nil
	}
	out := make([]r2.Point, 0, len(pts))
	for _, pt := range pts {
		px, ok := cm.ProjectPoint(pose.Transform(pt))
		if !ok {
			return nil
		}
		out = append(out, px)
	}
	return out
}

// UndistortPixel maps a distorted pixel to undistorted normalized image coordinates, i.e. the
// (x/z, y/z) of the ray through the pixel. The result is NaN when the camera matrix is singular.
func (cm *CameraModel) UndistortPixel(pt r2.Point) r2.Point {
	var ray mat.VecDense
	err := ray.SolveVec(cm.Matrix(), mat.NewVecDense(3, []float64{pt.X, pt.Y, 1}))
	if err != nil || ray.AtVec(2) == 0 {
		return r2.Point{X: math.NaN(), Y: math.NaN()}
	}
	x, y := cm.Undistortion.Transform(ray.AtVec(0)/ray.AtVec(2), ray.AtVec(1)/ray.AtVec(2))
	return r2.Point{X: x, Y: y}
}

func (cm *CameraModel) String() string {
	return fmt.Sprintf("%dx%d fx=%.2f fy=%.2f ppx=%.2f ppy=%.2f dist=%v calibrated=%t",
		cm.Width, cm.Height, cm.Fx, cm.Fy, cm.Ppx, cm.Ppy, cm.DistortionCoefficients(), cm.Calibrated)
}

// reprojectionRMS is the root mean square pixel distance between projected object points and
// observed image points. It is +Inf when a point cannot be projected.
func (cm *CameraModel) reprojectionRMS(pose *spatialmath.Pose, object []r3.Vector, image []r2.Point) float64 {
	projected := cm.ProjectPoints(pose, object)
	if len(projected) != len(image) || len(image) == 0 {
		return math.Inf(1)
	}
	var sum float64
	for i, p := range projected {
		d := p.Sub(image[i])
		sum += d.X*d.X + d.Y*d.Y
	}
	return math.Sqrt(sum / float64(len(image)))
}
