package call

import (
	"context"
	"errors"
	"testing"

	"github.com/dkeye/Call/internal/core"
	"github.com/dkeye/Call/internal/core/mock_core"
	"github.com/dkeye/Call/internal/domain"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var allDevices = []core.DeviceInfo{
	{ID: "cam", Kind: core.DeviceVideoInput},
	{ID: "mic", Kind: core.DeviceAudioInput},
}

func TestManager_AcquireMedia(t *testing.T) {
	ctx := context.Background()

	t.Run("idempotent while a track is live", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		media := mock_core.NewMockMediaSource(ctrl)
		stream := newFakeStream("local")
		media.EXPECT().SecureContext().Return(true)
		media.EXPECT().EnumerateDevices(gomock.Any()).Return(allDevices, nil)
		media.EXPECT().GetUserMedia(gomock.Any(), core.Constraints{Video: true, Audio: true}).Return(stream, nil)

		f := newFixture(t, media)
		first, err := f.m.AcquireMedia(ctx, nil)
		require.NoError(t, err)
		second, err := f.m.AcquireMedia(ctx, nil)
		require.NoError(t, err)
		require.Same(t, stream, first)
		require.Same(t, first, second)
		require.Same(t, stream, f.m.LocalStream())
	})

	t.Run("re-acquires when every track ended", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		media := mock_core.NewMockMediaSource(ctrl)
		dead := newFakeStream("dead")
		fresh := newFakeStream("fresh")
		media.EXPECT().SecureContext().Return(true).Times(2)
		media.EXPECT().EnumerateDevices(gomock.Any()).Return(allDevices, nil).Times(2)
		gomock.InOrder(
			media.EXPECT().GetUserMedia(gomock.Any(), gomock.Any()).Return(dead, nil),
			media.EXPECT().GetUserMedia(gomock.Any(), gomock.Any()).Return(fresh, nil),
		)

		f := newFixture(t, media)
		first, err := f.m.AcquireMedia(ctx, nil)
		require.NoError(t, err)
		for _, tr := range first.Tracks() {
			tr.(*fakeTrack).ended.Store(true)
		}

		second, err := f.m.AcquireMedia(ctx, nil)
		require.NoError(t, err)
		require.Same(t, fresh, second)
		require.NotSame(t, first, second)
	})

	t.Run("one live track is enough", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		media := mock_core.NewMockMediaSource(ctrl)
		stream := newFakeStream("local")
		media.EXPECT().SecureContext().Return(true)
		media.EXPECT().EnumerateDevices(gomock.Any()).Return(allDevices, nil)
		media.EXPECT().GetUserMedia(gomock.Any(), gomock.Any()).Return(stream, nil)

		f := newFixture(t, media)
		_, err := f.m.AcquireMedia(ctx, nil)
		require.NoError(t, err)
		stream.VideoTracks()[0].Stop()

		again, err := f.m.AcquireMedia(ctx, nil)
		require.NoError(t, err)
		require.Same(t, stream, again)
	})

	t.Run("preview gets video only", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		media := mock_core.NewMockMediaSource(ctrl)
		stream := newFakeStream("local")
		media.EXPECT().SecureContext().Return(true)
		media.EXPECT().EnumerateDevices(gomock.Any()).Return(allDevices, nil)
		media.EXPECT().GetUserMedia(gomock.Any(), gomock.Any()).Return(stream, nil)

		f := newFixture(t, media)
		preview := &captureSink{}
		_, err := f.m.AcquireMedia(ctx, preview)
		require.NoError(t, err)

		shown := preview.last()
		require.NotNil(t, shown)
		require.Len(t, shown.Tracks(), 1)
		require.Equal(t, domain.KindVideo, shown.Tracks()[0].Kind())
		require.Len(t, stream.Tracks(), 2)
	})
}

func TestManager_AcquireMediaErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("insecure context", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		media := mock_core.NewMockMediaSource(ctrl)
		media.EXPECT().SecureContext().Return(false)

		f := newFixture(t, media)
		_, err := f.m.AcquireMedia(ctx, nil)
		require.ErrorIs(t, err, domain.ErrMediaSecureContext)
		require.Nil(t, f.m.LocalStream())
	})

	probes := []struct {
		name    string
		devices []core.DeviceInfo
		want    error
	}{
		{"no devices", nil, domain.ErrMediaNoCamera},
		{"no camera", []core.DeviceInfo{{Kind: core.DeviceAudioInput}, {Kind: core.DeviceAudioOutput}}, domain.ErrMediaNoCamera},
		{"no mic", []core.DeviceInfo{{Kind: core.DeviceVideoInput}, {Kind: core.DeviceAudioOutput}}, domain.ErrMediaNoMic},
	}
	for _, tc := range probes {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			media := mock_core.NewMockMediaSource(ctrl)
			media.EXPECT().SecureContext().Return(true)
			media.EXPECT().EnumerateDevices(gomock.Any()).Return(tc.devices, nil)

			f := newFixture(t, media)
			_, err := f.m.AcquireMedia(ctx, nil)
			require.ErrorIs(t, err, tc.want)
		})
	}

	captures := []struct {
		name    string
		failure core.DeviceFailure
		want    error
	}{
		{"not allowed", core.DeviceNotAllowed, domain.ErrMediaPermission},
		{"not found", core.DeviceNotFound, domain.ErrMediaNoCamera},
		{"not readable", core.DeviceNotReadable, domain.ErrMediaInUse},
	}
	for _, tc := range captures {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			media := mock_core.NewMockMediaSource(ctrl)
			cause := &core.DeviceError{Failure: tc.failure, Err: errors.New("driver says no")}
			media.EXPECT().SecureContext().Return(true)
			media.EXPECT().EnumerateDevices(gomock.Any()).Return(allDevices, nil)
			media.EXPECT().GetUserMedia(gomock.Any(), gomock.Any()).Return(nil, cause)

			f := newFixture(t, media)
			_, err := f.m.AcquireMedia(ctx, nil)
			require.ErrorIs(t, err, tc.want)
			require.ErrorIs(t, err, cause)
		})
	}

	unmapped := []struct {
		name string
		err  error
	}{
		{"unknown device failure", &core.DeviceError{Failure: core.DeviceFailureUnknown}},
		{"plain error", errors.New("overconstrained")},
	}
	for _, tc := range unmapped {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			media := mock_core.NewMockMediaSource(ctrl)
			media.EXPECT().SecureContext().Return(true)
			media.EXPECT().EnumerateDevices(gomock.Any()).Return(allDevices, nil)
			media.EXPECT().GetUserMedia(gomock.Any(), gomock.Any()).Return(nil, tc.err)

			f := newFixture(t, media)
			_, err := f.m.AcquireMedia(ctx, nil)
			require.Equal(t, tc.err, err)
			var me *domain.MediaError
			require.False(t, errors.As(err, &me))
		})
	}

	t.Run("enumeration failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		media := mock_core.NewMockMediaSource(ctrl)
		media.EXPECT().SecureContext().Return(true)
		media.EXPECT().EnumerateDevices(gomock.Any()).Return(nil, &core.DeviceError{Failure: core.DeviceNotAllowed})

		f := newFixture(t, media)
		_, err := f.m.AcquireMedia(ctx, nil)
		require.ErrorIs(t, err, domain.ErrMediaPermission)
	})
}

func acquired(t *testing.T, stream *core.Stream) *fixture {
	ctrl := gomock.NewController(t)
	media := mock_core.NewMockMediaSource(ctrl)
	media.EXPECT().SecureContext().Return(true)
	media.EXPECT().EnumerateDevices(gomock.Any()).Return(allDevices, nil)
	media.EXPECT().GetUserMedia(gomock.Any(), gomock.Any()).Return(stream, nil)

	f := newFixture(t, media)
	_, err := f.m.AcquireMedia(context.Background(), nil)
	require.NoError(t, err)
	return f
}

func TestManager_ToggleMedia(t *testing.T) {
	t.Run("alternates and keeps the track live", func(t *testing.T) {
		stream := newFakeStream("local")
		f := acquired(t, stream)
		video := stream.VideoTracks()[0]

		require.False(t, f.m.ToggleMedia(domain.KindVideo))
		require.True(t, f.m.ToggleMedia(domain.KindVideo))
		require.False(t, f.m.ToggleMedia(domain.KindVideo))
		require.Equal(t, core.ReadyStateLive, video.ReadyState())
		require.True(t, stream.AudioTracks()[0].Enabled())

		require.False(t, f.m.ToggleMedia(domain.KindAudio))
		require.False(t, stream.AudioTracks()[0].Enabled())
	})

	t.Run("no local stream", func(t *testing.T) {
		f := newFixture(t, nil)
		require.False(t, f.m.ToggleMedia(domain.KindVideo))
		require.False(t, f.m.ToggleMedia(domain.KindAudio))
	})

	t.Run("no track of that kind", func(t *testing.T) {
		stream := core.NewStream("audio-only", newFakeTrack("a", domain.KindAudio))
		f := acquired(t, stream)
		require.False(t, f.m.ToggleMedia(domain.KindVideo))
		require.True(t, stream.AudioTracks()[0].Enabled())
	})
}

func TestManager_StopMedia(t *testing.T) {
	stream := newFakeStream("local")
	f := acquired(t, stream)

	f.m.StopMedia()
	require.Nil(t, f.m.LocalStream())
	require.False(t, stream.HasLiveTrack())

	f.m.StopMedia()
	require.Nil(t, f.m.LocalStream())
}

func TestManager_LocalTracksAttachedToTransport(t *testing.T) {
	stream := newFakeStream("local")
	f := acquired(t, stream)

	ft := f.transport(t)
	ft.mu.Lock()
	defer ft.mu.Unlock()
	require.Equal(t, stream.Tracks(), ft.tracks)
}

func TestManager_AcquireMediaClosedDuringCapture(t *testing.T) {
	ctrl := gomock.NewController(t)
	media := mock_core.NewMockMediaSource(ctrl)
	stream := newFakeStream("late")
	f := newFixture(t, media)

	media.EXPECT().SecureContext().Return(true)
	media.EXPECT().EnumerateDevices(gomock.Any()).Return(allDevices, nil)
	media.EXPECT().GetUserMedia(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, core.Constraints) (*core.Stream, error) {
			f.m.Close()
			return stream, nil
		})

	_, err := f.m.AcquireMedia(context.Background(), nil)
	require.ErrorIs(t, err, ErrManagerClosed)
	require.False(t, stream.HasLiveTrack())
	require.Nil(t, f.m.LocalStream())
}
