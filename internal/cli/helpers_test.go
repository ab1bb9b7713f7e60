package cli

import (
	"bytes"
	"io"
	"sync"
	"time"

	"github.com/alnah/go-transcript/internal/model"
	"github.com/alnah/go-transcript/internal/vad"
)

// ---------------------------------------------------------------------------
// syncBuffer - thread-safe bytes.Buffer for concurrent test output
// ---------------------------------------------------------------------------

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

var _ io.Writer = (*syncBuffer)(nil)

// ---------------------------------------------------------------------------
// testMocks - convenience struct for grouping all mocks
// ---------------------------------------------------------------------------

type testMocks struct {
	ffmpegResolver *mockFFmpegResolver
	configLoader   *mockConfigLoader
	remoteClient   *mockRemoteClientFactory
	restructurer   *mockRestructurerFactory
	audioEngine    *mockAudioEngine
}

func newTestMocks() *testMocks {
	return &testMocks{
		ffmpegResolver: &mockFFmpegResolver{},
		configLoader:   &mockConfigLoader{},
		remoteClient:   &mockRemoteClientFactory{},
		restructurer:   &mockRestructurerFactory{},
		audioEngine:    &mockAudioEngine{},
	}
}

// defaultTestTime is the fixed clock value used across cli tests.
var defaultTestTime = time.Date(2026, 1, 26, 14, 30, 52, 0, time.UTC)

// testEnv creates a test Env with all dependencies mocked.
func testEnv() (*Env, *testMocks) {
	mocks := newTestMocks()
	env := &Env{
		Stderr:              &syncBuffer{},
		Getenv:              defaultTestEnv,
		Now:                 fixedTime(defaultTestTime),
		FFmpegResolver:      mocks.ffmpegResolver,
		ConfigLoader:        mocks.configLoader,
		ModelRegistry:       model.NewRegistry(),
		RemoteClientFactory: mocks.remoteClient,
		AudioEngine:         mocks.audioEngine,
		VADPreprocessor:     vad.NoopPreprocessor{},
		RestructurerFactory: mocks.restructurer,
	}
	return env, mocks
}

// fixedTime returns a function that always returns the given time.
func fixedTime(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// staticEnv returns a getenv function that returns values from the given map.
func staticEnv(env map[string]string) func(string) string {
	return func(key string) string { return env[key] }
}

// defaultTestEnv returns a fake OpenAI API key.
func defaultTestEnv(key string) string {
	if key == EnvOpenAIAPIKey {
		return "test-openai-key"
	}
	return ""
}
