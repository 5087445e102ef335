package ask

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kagi-bot/internal/application/port/output"
	"kagi-bot/internal/domain/entity"
	"kagi-bot/internal/infrastructure/kagi"
)

type logEntry struct {
	level string
	msg   string
	args  []any
}

type recordingLogger struct {
	mu      sync.Mutex
	entries *[]logEntry
}

func newRecordingLogger() *recordingLogger {
	return &recordingLogger{entries: &[]logEntry{}}
}

func (l *recordingLogger) record(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.entries = append(*l.entries, logEntry{level: level, msg: msg, args: args})
}

func (l *recordingLogger) Debug(msg string, args ...any) { l.record("DEBUG", msg, args) }
func (l *recordingLogger) Info(msg string, args ...any)  { l.record("INFO", msg, args) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.record("WARN", msg, args) }
func (l *recordingLogger) Error(msg string, args ...any) { l.record("ERROR", msg, args) }

func (l *recordingLogger) WithField(string, any) output.LoggerPort     { return l }
func (l *recordingLogger) WithFields(map[string]any) output.LoggerPort { return l }
func (l *recordingLogger) Close() error                                { return nil }

func (l *recordingLogger) all() []logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]logEntry(nil), *l.entries...)
}

func (l *recordingLogger) levels() []string {
	var levels []string
	for _, e := range l.all() {
		levels = append(levels, e.level)
	}
	return levels
}

type fakeAnswers struct {
	body    string
	err     error
	queries []string
}

func (f *fakeAnswers) Ask(_ context.Context, query string) (*entity.AnswerResponse, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return entity.DecodeAnswerResponse([]byte(f.body)), nil
}

var alice = entity.Session{UserID: "1", Username: "alice", Platform: "test"}

func TestExecute_AnswerWithoutReferences(t *testing.T) {
	answers := &fakeAnswers{body: `{"data": {"output": "42", "references": []}}`}
	log := newRecordingLogger()
	uc := New(answers, log, Config{APIKey: "k"})

	reply := uc.Execute(context.Background(), alice, "Q")

	assert.Equal(t, "@alice \n\n🧐 您提问的问题: Q\n\n💬 回答:\n42", reply)
	assert.Equal(t, []string{"Q"}, answers.queries)
}

func TestExecute_AnswerWithReferences(t *testing.T) {
	answers := &fakeAnswers{body: `{"data": {"output": "42", "references": [
		{"title": "A", "url": "http://a"},
		{"title": "B", "url": "http://b"}
	]}}`}
	uc := New(answers, newRecordingLogger(), Config{APIKey: "k"})

	reply := uc.Execute(context.Background(), alice, "Q")

	assert.Equal(t,
		"@alice \n\n🧐 您提问的问题: Q\n\n💬 回答:\n42\n\n📚 参考资料:\n1. A - http://a\n2. B - http://b\n",
		reply)
}

func TestExecute_ReferencesKeepOrderAndDuplicates(t *testing.T) {
	answers := &fakeAnswers{body: `{"data": {"output": "x", "references": [
		{"title": "Z", "url": "http://z"},
		{"title": "A", "url": "http://a"},
		{"title": "Z", "url": "http://z"}
	]}}`}
	uc := New(answers, newRecordingLogger(), Config{APIKey: "k"})

	reply := uc.Execute(context.Background(), alice, "Q")

	assert.Contains(t, reply, "\n1. Z - http://z\n2. A - http://a\n3. Z - http://z\n")
}

func TestExecute_MissingOutput(t *testing.T) {
	for _, body := range []string{
		`{"data": {}}`,
		`{}`,
		`{"data": {"output": null}}`,
		`{"data": {"output": ""}}`,
		`{"data": {"output": 0}}`,
		`{"data": {"output": false}}`,
		`not json at all`,
	} {
		uc := New(&fakeAnswers{body: body}, newRecordingLogger(), Config{APIKey: "k"})
		assert.Equal(t, ReplyNoAnswer, uc.Execute(context.Background(), alice, "Q"), body)
	}
}

func TestExecute_TransportFailure(t *testing.T) {
	answers := &fakeAnswers{err: errors.New("dial tcp: connection refused")}
	log := newRecordingLogger()
	uc := New(answers, log, Config{APIKey: "k"})

	reply := uc.Execute(context.Background(), alice, "Q")

	assert.Equal(t, ReplyFailed, reply)
	entries := log.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "ERROR", entries[0].level)
	assert.Equal(t, []any{"error", "dial tcp: connection refused"}, entries[0].args)
}

func TestExecute_NonDebugLogging(t *testing.T) {
	t.Run("success logs only the reply", func(t *testing.T) {
		log := newRecordingLogger()
		uc := New(&fakeAnswers{body: `{"meta": {"id": "m", "api_balance": 1}, "data": {"output": "ok"}}`}, log, Config{APIKey: "k"})

		reply := uc.Execute(context.Background(), alice, "Q")

		entries := log.all()
		require.Len(t, entries, 1)
		assert.Equal(t, "INFO", entries[0].level)
		assert.Equal(t, []any{"reply", reply}, entries[0].args)
	})

	t.Run("missing output logs nothing", func(t *testing.T) {
		log := newRecordingLogger()
		uc := New(&fakeAnswers{body: `{"data": {}}`}, log, Config{APIKey: "k"})

		uc.Execute(context.Background(), alice, "Q")

		assert.Empty(t, log.all())
	})

	t.Run("error body is not logged", func(t *testing.T) {
		log := newRecordingLogger()
		err := &kagi.HTTPError{StatusCode: 500, Body: []byte(`{"error":"x"}`)}
		uc := New(&fakeAnswers{err: err}, log, Config{APIKey: "k"})

		uc.Execute(context.Background(), alice, "Q")

		assert.Equal(t, []string{"ERROR"}, log.levels())
	})
}

func TestExecute_DebugLogging(t *testing.T) {
	t.Run("success with meta", func(t *testing.T) {
		log := newRecordingLogger()
		body := `{"meta": {"id": "msg-9", "api_balance": 4.25}, "data": {"output": "ok"}}`
		uc := New(&fakeAnswers{body: body}, log, Config{APIKey: "k", DebugMode: true})

		uc.Execute(context.Background(), alice, "Q")

		entries := log.all()
		require.Len(t, entries, 4)
		assert.Equal(t, []string{"INFO", "INFO", "INFO", "INFO"}, log.levels())
		assert.Contains(t, entries[1].args, "Q")
		assert.Equal(t, []any{
			"id", "msg-9",
			"api_balance", 4.25,
			"response", `{"meta":{"id":"msg-9","api_balance":4.25},"data":{"output":"ok"}}`,
		}, entries[2].args)
	})

	t.Run("success without meta", func(t *testing.T) {
		log := newRecordingLogger()
		uc := New(&fakeAnswers{body: `{"data": {"output": "ok"}}`}, log, Config{APIKey: "k", DebugMode: true})

		uc.Execute(context.Background(), alice, "Q")

		assert.Len(t, log.all(), 3)
	})

	t.Run("missing output warns with raw body", func(t *testing.T) {
		log := newRecordingLogger()
		uc := New(&fakeAnswers{body: `{"data": {}}`}, log, Config{APIKey: "k", DebugMode: true})

		uc.Execute(context.Background(), alice, "Q")

		entries := log.all()
		require.Len(t, entries, 3)
		assert.Equal(t, "WARN", entries[2].level)
		assert.Equal(t, []any{"response", `{"data":{}}`}, entries[2].args)
	})

	t.Run("http error logs body", func(t *testing.T) {
		log := newRecordingLogger()
		err := &kagi.HTTPError{StatusCode: 401, Body: []byte(`{"error": "bad key"}`)}
		uc := New(&fakeAnswers{err: err}, log, Config{APIKey: "k", DebugMode: true})

		reply := uc.Execute(context.Background(), alice, "Q")

		assert.Equal(t, ReplyFailed, reply)
		entries := log.all()
		require.Len(t, entries, 4)
		assert.Equal(t, []any{"error", "request failed with status code 401"}, entries[2].args)
		assert.Equal(t, []any{"body", `{"error":"bad key"}`}, entries[3].args)
	})

	t.Run("network error has no body to log", func(t *testing.T) {
		log := newRecordingLogger()
		uc := New(&fakeAnswers{err: errors.New("timeout")}, log, Config{APIKey: "k", DebugMode: true})

		uc.Execute(context.Background(), alice, "Q")

		assert.Equal(t, []string{"INFO", "INFO", "ERROR"}, log.levels())
	})
}

func TestExecute_UnexpectedFieldTypes(t *testing.T) {
	log := newRecordingLogger()
	body := `{"meta": {"id": 77, "ms": 12.5, "api_balance": 2}, "data": {"output": "ok", "references": [
		{"title": "A", "url": "http://a"},
		{"title": "B", "url": "http://b", "snippet": 5}
	]}}`
	uc := New(&fakeAnswers{body: body}, log, Config{APIKey: "k", DebugMode: true})

	reply := uc.Execute(context.Background(), alice, "Q")

	assert.Equal(t,
		"@alice \n\n🧐 您提问的问题: Q\n\n💬 回答:\nok\n\n📚 参考资料:\n1. A - http://a\n2. B - http://b\n",
		reply)
	entries := log.all()
	require.Len(t, entries, 4)
	assert.Equal(t, []any{"id", "77", "api_balance", 2.0}, entries[2].args[:4])
}

func TestExecute_Idempotent(t *testing.T) {
	answers := &fakeAnswers{body: `{"data": {"output": "same", "references": [{"title": "T", "url": "http://t"}]}}`}
	uc := New(answers, newRecordingLogger(), Config{APIKey: "k"})

	first := uc.Execute(context.Background(), alice, "Q")
	second := uc.Execute(context.Background(), alice, "Q")

	assert.Equal(t, first, second)
	assert.Len(t, answers.queries, 2)
}

func TestExecute_AgainstHTTPServer(t *testing.T) {
	var (
		mu       sync.Mutex
		requests int
		gotAuth  string
		gotBody  map[string]any
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		requests++
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_, _ = w.Write([]byte(`{"data": {"output": "Paris", "references": [{"title": "Wiki", "url": "https://w"}]}}`))
	}))
	defer srv.Close()

	cfg := kagi.DefaultConfig("api-key")
	cfg.Endpoint = srv.URL
	uc := New(kagi.NewFastGPTAdapter(cfg), newRecordingLogger(), Config{APIKey: "api-key"})

	reply := uc.Execute(context.Background(), entity.Session{Username: "bob"}, "Capital of France?")

	assert.Equal(t, 1, requests)
	assert.Equal(t, "Bot api-key", gotAuth)
	assert.Equal(t, map[string]any{"query": "Capital of France?", "cache": true, "web_search": true}, gotBody)
	assert.Equal(t,
		"@bob \n\n🧐 您提问的问题: Capital of France?\n\n💬 回答:\nParis\n\n📚 参考资料:\n1. Wiki - https://w\n",
		reply)
}

func TestNew_DebugModeAnnouncesLoad(t *testing.T) {
	log := newRecordingLogger()
	New(&fakeAnswers{}, log, Config{APIKey: "k", DebugMode: true})
	assert.Len(t, log.all(), 1)

	quiet := newRecordingLogger()
	New(&fakeAnswers{}, quiet, Config{APIKey: "k"})
	assert.Empty(t, quiet.all())
}

func TestConfig_Validate(t *testing.T) {
	assert.ErrorIs(t, Config{}.Validate(), ErrMissingAPIKey)
	assert.NoError(t, Config{APIKey: "k"}.Validate())
}

func TestCommandMetadata(t *testing.T) {
	uc := New(&fakeAnswers{}, newRecordingLogger(), Config{APIKey: "k"})
	assert.Equal(t, "kagi.ask <question:text>", uc.Declaration())
	assert.Equal(t, "🤖 向 FastGPT 提问", uc.Description())
}
