// Package snsfn provides an agentrun.Function that forwards tool calls to an
// AWS SNS topic, letting a remote worker perform the actual work.
package snsfn

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/skosovsky/agentrun"
	"github.com/skosovsky/agentrun/guard"
)

// NamePrefix marks functions executed out of process.
const NamePrefix = "cloud."

// Publisher is the subset of *sns.Client used to publish notifications.
type Publisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Config carries the transport of a Function.
type Config struct {
	Publisher Publisher
	TopicARN  string
	// Logger receives publish failures. Defaults to slog.Default.
	Logger *slog.Logger
}

// Function publishes its arguments as one SNS message per call. Execute returns
// true when the message was accepted and false (with a nil error) otherwise.
type Function struct {
	agentrun.Function
	publisher Publisher
	topicARN  string
	target    string
	logger    *slog.Logger
}

// New validates the SNS settings and builds the function. The checks run
// before the function is constructed, so an invalid one is never added to a
// registry passed with agentrun.WithRegistry. A valid one is registered as the
// *Function itself, so registry entries can be asserted back to it.
func New(
	name, description string,
	params []agentrun.Parameter,
	cfg Config,
	opts ...agentrun.FunctionOption,
) (*Function, error) {
	if err := guard.First(
		guard.Guard(strings.HasPrefix(name, NamePrefix), `function name must start with "cloud."`),
		guard.NotNil(cfg.Publisher, "sns publisher is required"),
		guard.NotEmpty(cfg.TopicARN, "sns topic ARN is required"),
	); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	f := &Function{
		publisher: cfg.Publisher,
		topicARN:  cfg.TopicARN,
		target:    strings.TrimPrefix(name, NamePrefix),
		logger:    logger,
	}
	wrap := func(base agentrun.Function) agentrun.Function {
		f.Function = base
		return f
	}
	opts = append([]agentrun.FunctionOption{agentrun.WithMiddleware(wrap)}, opts...)
	if _, err := agentrun.NewFunction(name, description, params, f.publish, opts...); err != nil {
		return nil, err
	}
	return f, nil
}

// Target returns the name of the remote function, without NamePrefix.
func (f *Function) Target() string { return f.target }

// TopicARN returns the destination topic.
func (f *Function) TopicARN() string { return f.topicARN }

// Publisher returns the SNS transport.
func (f *Function) Publisher() Publisher { return f.publisher }

// SchemaDir forwards the export directory of the underlying function.
func (f *Function) SchemaDir() string {
	if sl, ok := f.Function.(agentrun.SchemaLocator); ok {
		return sl.SchemaDir()
	}
	return ""
}

// LogEnabled forwards the export log flag of the underlying function.
func (f *Function) LogEnabled() bool {
	if el, ok := f.Function.(agentrun.ExportLogger); ok {
		return el.LogEnabled()
	}
	return false
}

func (f *Function) publish(ctx context.Context, args map[string]any) (any, error) {
	body, err := json.Marshal(args)
	if err != nil {
		f.logger.ErrorContext(ctx, "sns message encoding failed", "function", f.Name(), "error", err)
		return false, nil
	}
	out, err := f.publisher.Publish(ctx, f.message(string(body)))
	if err != nil {
		f.logger.ErrorContext(ctx, "sns publish failed", "function", f.Name(), "topic", f.topicARN, "error", err)
		return false, nil
	}
	var messageID string
	if out != nil {
		messageID = aws.ToString(out.MessageId)
	}
	f.logger.DebugContext(ctx, "sns message published", "function", f.Name(), "message_id", messageID)
	return true, nil
}

func (f *Function) message(body string) *sns.PublishInput {
	return &sns.PublishInput{
		Message:        aws.String(body),
		TopicArn:       aws.String(f.topicARN),
		MessageGroupId: aws.String("AgentFunction_" + f.target),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"function": {
				DataType:    aws.String("String"),
				StringValue: aws.String(f.target),
			},
		},
	}
}

var (
	_ Publisher              = (*sns.Client)(nil)
	_ agentrun.Function      = (*Function)(nil)
	_ agentrun.SchemaLocator = (*Function)(nil)
	_ agentrun.ExportLogger  = (*Function)(nil)
)
