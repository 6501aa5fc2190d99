package device

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/doorbell/internal/audio"
	"github.com/muurk/doorbell/internal/protocol"
)

var testToken = protocol.Token{1, 2, 3, 4, 5, 6, 7, 8}

// recorder captures sends and sleeps in the order they happen
type recorder struct {
	frames []*protocol.Frame
	events []string
	failAt int // 1-based send number that fails, 0 = never
	err    error
}

func (r *recorder) Send(frame []byte) error {
	n := len(r.frames) + 1
	if r.failAt == n {
		r.events = append(r.events, fmt.Sprintf("fail %d", n))
		return r.err
	}
	f, err := protocol.Checksummed.Parse(frame)
	if err != nil {
		return err
	}
	r.frames = append(r.frames, f)
	r.events = append(r.events, fmt.Sprintf("send %s", f.Command))
	return nil
}

func (r *recorder) Sleep(d time.Duration) {
	r.events = append(r.events, fmt.Sprintf("sleep %s", d))
}

func newTestClient(r *recorder) *Client {
	return NewClient(protocol.NewEncoder(protocol.Checksummed, testToken), r, WithSleep(r.Sleep))
}

type memorySource map[string]*audio.Clip

func (m memorySource) Read(name string) (*audio.Clip, error) {
	clip, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("no clip %q", name)
	}
	return clip, nil
}

func TestClient_SimpleCommands(t *testing.T) {
	r := &recorder{}
	c := newTestClient(r)

	require.NoError(t, c.PlayAudio(3))
	require.NoError(t, c.DeleteFile(4))
	require.NoError(t, c.PrintString("ding dong"))

	require.Len(t, r.frames, 3)
	assert.Equal(t, protocol.CmdPlayAudio, r.frames[0].Command)
	assert.Equal(t, []byte{3}, r.frames[0].Payload)
	assert.Equal(t, protocol.CmdDeleteFile, r.frames[1].Command)
	assert.Equal(t, []byte{4}, r.frames[1].Payload)
	assert.Equal(t, protocol.CmdPrintString, r.frames[2].Command)
	assert.Equal(t, "ding dong", string(r.frames[2].Payload))
	for _, f := range r.frames {
		assert.Equal(t, testToken, f.Token)
	}
	assert.NotContains(t, r.events, "sleep 1.2s", "only uploads are paced")
}

func TestClient_FatalErrorsSendNothing(t *testing.T) {
	r := &recorder{}
	c := newTestClient(r)

	assert.True(t, protocol.IsEncodingError(c.PlayAudio(256)))
	assert.True(t, protocol.IsEncodingError(c.DeleteFile(-1)))
	assert.True(t, protocol.IsFrameTooLarge(c.PrintString(string(make([]byte, protocol.MaxFrameSize)))))
	assert.Empty(t, r.frames)
}

func TestClient_UploadFile(t *testing.T) {
	r := &recorder{}
	c := newTestClient(r)

	samples := make([]int, 9000)
	for i := range samples {
		samples[i] = i % 7 // includes zeros
	}

	var progress []Progress
	err := c.UploadFile(2, &audio.Clip{SampleRate: 16000, Samples: samples}, func(p Progress) {
		progress = append(progress, p)
	})
	require.NoError(t, err)

	require.Len(t, r.frames, 3)
	wantCmds := []protocol.Command{protocol.CmdUploadAudioStart, protocol.CmdUploadAudioContinue, protocol.CmdUploadAudioContinue}
	wantLens := []int{4000, 4000, 1000}
	for i, f := range r.frames {
		assert.Equal(t, wantCmds[i], f.Command, "chunk %d", i)
		require.Len(t, f.Payload, 1+wantLens[i])
		assert.Equal(t, byte(2), f.Payload[0])
		assert.NotContains(t, f.Payload[1:], byte(0), "zero samples must be clamped")
	}

	assert.Equal(t, []string{
		"send upload_audio_start", "sleep 1.2s",
		"send upload_audio_continue", "sleep 1.2s",
		"send upload_audio_continue", "sleep 1.2s",
	}, r.events)

	require.Len(t, progress, 3)
	assert.Equal(t, Progress{FileID: 2, Chunk: 3, TotalChunks: 3, SamplesSent: 9000, TotalSamples: 9000}, progress[2])
	assert.InDelta(t, 4000.0/9000.0, progress[0].Fraction(), 1e-9)
}

func TestClient_UploadStopsOnSendError(t *testing.T) {
	sendErr := errors.New("gave up")
	r := &recorder{failAt: 2, err: sendErr}
	c := newTestClient(r)

	err := c.UploadFile(1, &audio.Clip{Samples: make([]int, 12000)}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, sendErr)
	assert.Contains(t, err.Error(), "chunk 2/3")

	assert.Equal(t, []string{"send upload_audio_start", "sleep 1.2s", "fail 2"}, r.events)
}

func TestClient_UploadStopsOnWideSample(t *testing.T) {
	r := &recorder{}
	c := newTestClient(r)

	samples := make([]int, 8001)
	samples[8000] = 512

	err := c.UploadFile(1, &audio.Clip{Samples: samples}, nil)
	require.Error(t, err)
	assert.True(t, protocol.IsEncodingError(err))
	assert.ErrorContains(t, err, "offset 8000")
	assert.Empty(t, r.events, "no chunk may reach the device when a later one is invalid")
}

func TestClient_UploadEmptyClip(t *testing.T) {
	r := &recorder{}
	c := newTestClient(r)

	assert.True(t, protocol.IsEncodingError(c.UploadFile(1, &audio.Clip{}, nil)))
	assert.True(t, protocol.IsEncodingError(c.UploadFile(1, nil, nil)))
	assert.Empty(t, r.events)
}

func TestClient_UploadBatch(t *testing.T) {
	r := &recorder{}
	c := NewClient(protocol.NewEncoder(nil, testToken), r, WithSleep(r.Sleep), WithPacing(0))

	source := memorySource{
		"dingdong.wav": {Samples: []int{10, 20}},
		"beep.wav":     {Samples: []int{30}},
	}
	err := c.UploadBatch([]BatchItem{{FileID: 0, Name: "dingdong.wav"}, {FileID: 1, Name: "beep.wav"}}, source, nil)
	require.NoError(t, err)

	require.Len(t, r.frames, 2)
	assert.Equal(t, []byte{0, 10, 20}, r.frames[0].Payload)
	assert.Equal(t, []byte{1, 30}, r.frames[1].Payload)
	assert.Equal(t, []string{"send upload_audio_start", "send upload_audio_start"}, r.events, "pacing disabled")

	err = c.UploadBatch([]BatchItem{{FileID: 2, Name: "missing.wav"}}, source, nil)
	assert.ErrorContains(t, err, "missing.wav")
}
