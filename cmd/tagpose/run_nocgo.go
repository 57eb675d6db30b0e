//go:build !cgo || no_cgo

package main

import (
	"context"

	"github.com/pkg/errors"

	"go.viam.com/tagpose/config"
	"go.viam.com/tagpose/logging"
	"go.viam.com/tagpose/rimage/calibrate"
)

var errNoOpenCV = errors.New("tagpose needs OpenCV; rebuild with cgo enabled")

func run(context.Context, *config.Config, logging.Logger) error {
	return errNoOpenCV
}

func calibrateCamera(context.Context, calibrate.Options, logging.Logger) error {
	return errNoOpenCV
}
