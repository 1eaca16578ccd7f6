//go:build !devices

package main

import (
	"errors"

	"github.com/dkeye/Call/internal/adapters/media"
	"github.com/dkeye/Call/internal/config"
	"github.com/dkeye/Call/internal/core"
	"github.com/pion/webrtc/v4"
)

func newSource(cfg *config.Config) (core.MediaSource, *webrtc.MediaEngine, error) {
	if cfg.Media.Source == "devices" {
		return nil, nil, errors.New("device capture needs a build with -tags devices")
	}
	src := media.NewStaticSource()
	src.Secure = cfg.Media.SecureContext
	src.Pump = true
	return src, nil, nil
}
