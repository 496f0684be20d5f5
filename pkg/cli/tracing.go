package cli

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jlevy/kash-media/pkg/logger"
	"github.com/jlevy/kash-media/pkg/telemetry"
	"github.com/jlevy/kash-media/pkg/version"
)

var tracer = telemetry.Tracer("kash.cli")

// tracingShutdown flushes the tracer provider; set once tracing starts.
var tracingShutdown func(context.Context) error

func addTracingFlags(root *cobra.Command) {
	root.PersistentFlags().Bool("tracing-enabled", false, "Enable OpenTelemetry tracing")
	root.PersistentFlags().String("tracing-sampler", "ratio", "Tracing sampler type (always, never, ratio)")
	root.PersistentFlags().Float64("tracing-ratio", 1, "Sampling ratio when using ratio sampler")

	viper.BindPFlag("tracing.enabled", root.PersistentFlags().Lookup("tracing-enabled"))
	viper.BindPFlag("tracing.sampler", root.PersistentFlags().Lookup("tracing-sampler"))
	viper.BindPFlag("tracing.ratio", root.PersistentFlags().Lookup("tracing-ratio"))
}

// startTracing initializes the OpenTelemetry tracer provider from the
// resolved config. Failures degrade to no tracing rather than aborting.
func startTracing(cmd *cobra.Command) {
	ctx := cmd.Context()
	config := telemetry.Config{
		Enabled:        viper.GetBool("tracing.enabled"),
		ServiceName:    cmd.Root().Name(),
		ServiceVersion: version.Get().Version,
		SamplerType:    viper.GetString("tracing.sampler"),
		SamplerRatio:   viper.GetFloat64("tracing.ratio"),
	}

	shutdown, err := telemetry.InitTracer(ctx, config)
	if err != nil {
		logger.G(ctx).WithError(err).Warn("Failed to initialize tracing")
		return
	}
	tracingShutdown = shutdown
}

func stopTracing() {
	if tracingShutdown == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = tracingShutdown(ctx)
	tracingShutdown = nil
}

// withTracing wraps a command's Run in a CLI span carrying the command
// path and its set flags.
func withTracing(cmd *cobra.Command) *cobra.Command {
	originalRun := cmd.Run

	cmd.Run = func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		attrs := []attribute.KeyValue{
			attribute.String("command.name", cmd.Name()),
			attribute.String("command.path", cmd.CommandPath()),
			attribute.Int("args.count", len(args)),
		}
		cmd.Flags().Visit(func(flag *pflag.Flag) {
			attrs = append(attrs, attribute.String("flag."+flag.Name, flag.Value.String()))
		})

		ctx, span := tracer.Start(ctx, "cli.command", trace.WithAttributes(attrs...))
		defer span.End()

		cmd.SetContext(ctx)
		originalRun(cmd, args)
		span.SetStatus(codes.Ok, "")
	}

	return cmd
}
