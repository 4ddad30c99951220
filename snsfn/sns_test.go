package snsfn

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/skosovsky/agentrun"
	"github.com/skosovsky/agentrun/guard"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testTopic = "arn:aws:sns:us-east-1:000000000000:TestTopic"

type fakePublisher struct {
	mu     sync.Mutex
	inputs []*sns.PublishInput
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inputs = append(p.inputs, in)
	if p.err != nil {
		return nil, p.err
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-1")}, nil
}

func (p *fakePublisher) published() []*sns.PublishInput {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*sns.PublishInput(nil), p.inputs...)
}

var fooParams = []agentrun.Parameter{{Name: "foo", Type: "string", Required: true}}

func TestNew(t *testing.T) {
	reg := agentrun.NewRegistry()
	pub := &fakePublisher{}
	fn, err := New("cloud.test", "test", fooParams,
		Config{Publisher: pub, TopicARN: testTopic}, agentrun.WithRegistry(reg))
	require.NoError(t, err)
	assert.Equal(t, "cloud.test", fn.Name())
	assert.Equal(t, "test", fn.Description())
	assert.Equal(t, "test", fn.Target())
	assert.Equal(t, testTopic, fn.TopicARN())
	assert.Same(t, pub, fn.Publisher())
	assert.Equal(t, agentrun.DefaultSchemaDir, fn.SchemaDir())
	assert.Equal(t, []string{"foo"}, fn.Schema().Required)
	assert.Equal(t, 1, reg.Len())
}

func TestNew_RegistersWrapper(t *testing.T) {
	reg := agentrun.NewRegistry()
	fn, err := New("cloud.notify", "Notify", fooParams,
		Config{Publisher: &fakePublisher{}, TopicARN: testTopic},
		agentrun.WithRegistry(reg), agentrun.WithFunctionLog(true))
	require.NoError(t, err)

	all := reg.GetAll()
	require.Len(t, all, 1)
	got, ok := all[0].(*Function)
	require.True(t, ok, "registry holds %T", all[0])
	assert.Same(t, fn, got)
	assert.Equal(t, "notify", got.Target())
	assert.Equal(t, testTopic, got.TopicARN())
	assert.True(t, got.LogEnabled())
}

func TestNew_RegistersWrapperOutsideMiddleware(t *testing.T) {
	reg := agentrun.NewRegistry()
	pub := &fakePublisher{}
	fn, err := New("cloud.notify", "Notify", fooParams,
		Config{Publisher: pub, TopicARN: testTopic},
		agentrun.WithRegistry(reg), agentrun.WithMiddleware(agentrun.WithTimeout(time.Second)))
	require.NoError(t, err)

	got, ok := reg.GetAll()[0].(*Function)
	require.True(t, ok)
	assert.Same(t, fn, got)

	out, err := got.Execute(context.Background(), map[string]any{"foo": "bar"})
	require.NoError(t, err)
	assert.Equal(t, true, out)
	assert.Len(t, pub.published(), 1)
}

func TestNew_Guards(t *testing.T) {
	pub := &fakePublisher{}
	tests := []struct {
		name   string
		fnName string
		cfg    Config
		reason string
	}{
		{"missing prefix", "test", Config{Publisher: pub, TopicARN: testTopic}, `function name must start with "cloud."`},
		{"prefix checked first", "notify", Config{}, `function name must start with "cloud."`},
		{"nil publisher", "cloud.test", Config{TopicARN: testTopic}, "sns publisher is required"},
		{"typed nil publisher", "cloud.test", Config{Publisher: (*sns.Client)(nil), TopicARN: testTopic},
			"sns publisher is required"},
		{"publisher checked before topic", "cloud.test", Config{}, "sns publisher is required"},
		{"empty topic", "cloud.test", Config{Publisher: pub}, "sns topic ARN is required"},
		{"blank topic", "cloud.test", Config{Publisher: pub, TopicARN: "  "}, "sns topic ARN is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := agentrun.NewRegistry()
			fn, err := New(tt.fnName, "test", nil, tt.cfg, agentrun.WithRegistry(reg))
			require.Error(t, err)
			assert.Nil(t, fn)
			assert.ErrorIs(t, err, guard.ErrValidation)
			assert.Equal(t, tt.reason, err.Error())
			assert.Equal(t, 0, reg.Len(), "an invalid function is never registered")
		})
	}
}

func TestExecute_Publishes(t *testing.T) {
	pub := &fakePublisher{}
	fn, err := New("cloud.notify", "Notify the on-call team", fooParams,
		Config{Publisher: pub, TopicARN: "arn:test:topic"})
	require.NoError(t, err)

	out, err := fn.Execute(context.Background(), map[string]any{"foo": "bar"})
	require.NoError(t, err)
	assert.Equal(t, true, out)

	inputs := pub.published()
	require.Len(t, inputs, 1)
	in := inputs[0]
	assert.Equal(t, "arn:test:topic", aws.ToString(in.TopicArn))
	assert.Equal(t, "AgentFunction_notify", aws.ToString(in.MessageGroupId))
	assert.Contains(t, aws.ToString(in.MessageGroupId), "notify")
	assert.JSONEq(t, `{"foo":"bar"}`, aws.ToString(in.Message))

	attr, ok := in.MessageAttributes["function"]
	require.True(t, ok)
	assert.Equal(t, "String", aws.ToString(attr.DataType))
	assert.Equal(t, "notify", aws.ToString(attr.StringValue))
	assert.Len(t, in.MessageAttributes, 1)
}

func TestExecute_PublishFailure(t *testing.T) {
	var buf bytes.Buffer
	pub := &fakePublisher{err: errors.New("throttled")}
	fn, err := New("cloud.notify", "", nil, Config{
		Publisher: pub,
		TopicARN:  testTopic,
		Logger:    slog.New(slog.NewTextHandler(&buf, nil)),
	})
	require.NoError(t, err)

	out, err := fn.Execute(context.Background(), map[string]any{"foo": "bar"})
	require.NoError(t, err, "publish failures are reported as false, not as errors")
	assert.Equal(t, false, out)
	assert.Len(t, pub.published(), 1, "no retry")
	assert.Contains(t, buf.String(), "sns publish failed")
	assert.Contains(t, buf.String(), "throttled")
}

func TestExecute_EncodingFailure(t *testing.T) {
	var buf bytes.Buffer
	pub := &fakePublisher{}
	fn, err := New("cloud.notify", "", nil, Config{
		Publisher: pub,
		TopicARN:  testTopic,
		Logger:    slog.New(slog.NewTextHandler(&buf, nil)),
	})
	require.NoError(t, err)

	out, err := fn.Execute(context.Background(), map[string]any{"ch": make(chan int)})
	require.NoError(t, err)
	assert.Equal(t, false, out)
	assert.Empty(t, pub.published())
	assert.Contains(t, buf.String(), "sns message encoding failed")
}

func TestExecute_WithArgumentValidation(t *testing.T) {
	pub := &fakePublisher{}
	fn, err := New("cloud.notify", "", fooParams,
		Config{Publisher: pub, TopicARN: testTopic}, agentrun.WithArgumentValidation())
	require.NoError(t, err)

	_, err = fn.Execute(context.Background(), map[string]any{})
	require.ErrorIs(t, err, guard.ErrValidation)
	assert.Empty(t, pub.published())
}

func TestFunction_ExportedSchema(t *testing.T) {
	fn, err := New("cloud.notify", "Notify", fooParams, Config{Publisher: &fakePublisher{}, TopicARN: testTopic})
	require.NoError(t, err)
	path, err := agentrun.ExportSchema(fn, t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, path, "cloud.notify.schema.json")

	data, err := json.Marshal(fn.Schema())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"name":"cloud.notify"`)
}
