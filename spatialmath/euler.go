package spatialmath

import (
	"math"

	"go.viam.com/tagpose/utils"
)

// gimbalLockThreshold is the value of sy below which the decomposition treats the rotation as
// singular.
const gimbalLockThreshold = 1e-6

// EulerAngles are the display orientation of a marker relative to the camera, in degrees.
// Pitch is about camera +X, yaw about camera +Y and roll about camera +Z, with the OpenCV camera
// frame (+x right, +y down, +z forward).
type EulerAngles struct {
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
	Roll  float64 `json:"roll"`
}

// EulerAnglesFromRotationMatrix decomposes a rotation matrix into pitch, yaw and roll degrees.
//
// With sy = sqrt(R00² + R20²), the regular case is
//
//	pitch = atan2(R21, R22), yaw = atan2(-R20, sy), roll = atan2(R10, R00)
//
// and when sy < 1e-6 the rotation is treated as gimbal locked:
//
//	pitch = atan2(-R12, R11), yaw = atan2(-R20, sy), roll = 0
//
// Roll is not observable in the locked configuration and is reported as zero by convention.
// Note that sy uses R20 rather than R10, so yaw is exact only when the true yaw is zero; pitch
// and roll are exact whenever the true yaw is within (-90°, 90°).
func EulerAnglesFromRotationMatrix(rm *RotationMatrix) *EulerAngles {
	r00, r20 := rm.At(0, 0), rm.At(2, 0)
	sy := math.Sqrt(r00*r00 + r20*r20)

	var pitch, yaw, roll float64
	if sy >= gimbalLockThreshold {
		pitch = math.Atan2(rm.At(2, 1), rm.At(2, 2))
		yaw = math.Atan2(-r20, sy)
		roll = math.Atan2(rm.At(1, 0), r00)
	} else {
		pitch = math.Atan2(-rm.At(1, 2), rm.At(1, 1))
		yaw = math.Atan2(-r20, sy)
		roll = 0
	}
	return &EulerAngles{
		Pitch: utils.RadToDeg(pitch),
		Yaw:   utils.RadToDeg(yaw),
		Roll:  utils.RadToDeg(roll),
	}
}

// RotationMatrix composes R = Rz(roll) · Ry(yaw) · Rx(pitch).
func (ea *EulerAngles) RotationMatrix() *RotationMatrix {
	p, y, r := utils.DegToRad(ea.Pitch), utils.DegToRad(ea.Yaw), utils.DegToRad(ea.Roll)
	cp, sp := math.Cos(p), math.Sin(p)
	cy, sy := math.Cos(y), math.Sin(y)
	cr, sr := math.Cos(r), math.Sin(r)
	return &RotationMatrix{[9]float64{
		cr * cy, cr*sy*sp - sr*cp, cr*sy*cp + sr*sp,
		sr * cy, sr*sy*sp + cr*cp, sr*sy*cp - cr*sp,
		-sy, cy * sp, cy * cp,
	}}
}
