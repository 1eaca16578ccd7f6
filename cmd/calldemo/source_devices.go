//go:build devices

package main

import (
	"fmt"

	"github.com/dkeye/Call/internal/adapters/media"
	"github.com/dkeye/Call/internal/config"
	"github.com/dkeye/Call/internal/core"
	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/codec/opus"
	"github.com/pion/mediadevices/pkg/codec/vpx"
	_ "github.com/pion/mediadevices/pkg/driver/camera"     // registers camera adapter
	_ "github.com/pion/mediadevices/pkg/driver/microphone" // registers microphone adapter
	"github.com/pion/webrtc/v4"
)

func newSource(cfg *config.Config) (core.MediaSource, *webrtc.MediaEngine, error) {
	if cfg.Media.Source != "devices" {
		src := media.NewStaticSource()
		src.Secure = cfg.Media.SecureContext
		src.Pump = true
		return src, nil, nil
	}

	vpxParams, err := vpx.NewVP8Params()
	if err != nil {
		return nil, nil, fmt.Errorf("vp8 params: %w", err)
	}
	vpxParams.BitRate = 500_000
	opusParams, err := opus.NewParams()
	if err != nil {
		return nil, nil, fmt.Errorf("opus params: %w", err)
	}
	codecs := mediadevices.NewCodecSelector(
		mediadevices.WithVideoEncoders(&vpxParams),
		mediadevices.WithAudioEncoders(&opusParams),
	)
	engine := &webrtc.MediaEngine{}
	codecs.Populate(engine)
	return media.NewDeviceSource(codecs, cfg.Media.SecureContext), engine, nil
}
