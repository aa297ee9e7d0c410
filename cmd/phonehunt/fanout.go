package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"phonehunt/internal/logging"
)

// NewFanoutCmd creates the fanout command.
func NewFanoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fanout",
		Short: "Spread a row range across disposable cloud workers",
		Long: `Fanout splits a row range into contiguous chunks and starts one
container VM per chunk. Each worker receives its slice through the
START_ROW and END_ROW environment variables, which the run command
honors when no explicit --start/--end flags are given.

Workers are plain "gcloud compute instances create-with-container"
instances; the image must bundle the input file and carry proxy
credentials in its environment.`,
		RunE: runFanoutCmd,
	}

	cmd.Flags().String("image", "", "Container image that runs phonehunt")
	cmd.Flags().String("project", "", "GCP project ID")
	cmd.Flags().String("zone", "us-central1-a", "GCP zone")
	cmd.Flags().Int("workers", 2, "Number of worker VMs")
	cmd.Flags().Int("start", 1, "First row of the whole range, 1-based")
	cmd.Flags().Int("end", 0, "Last row of the whole range, inclusive")
	cmd.Flags().StringArray("env", nil, "Extra KEY=VALUE container environment entries")
	cmd.Flags().Duration("ttl", 0, "Tear the workers down after this long (0 leaves them running)")
	cmd.Flags().Bool("dry-run", false, "Print the gcloud commands without executing them")

	_ = cmd.MarkFlagRequired("image")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("end")

	return cmd
}

func runFanoutCmd(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(cmd); err != nil {
		return err
	}
	log := logging.WithComponent("fanout")

	image, _ := cmd.Flags().GetString("image")
	project, _ := cmd.Flags().GetString("project")
	zone, _ := cmd.Flags().GetString("zone")
	workers, _ := cmd.Flags().GetInt("workers")
	start, _ := cmd.Flags().GetInt("start")
	end, _ := cmd.Flags().GetInt("end")
	extraEnv, _ := cmd.Flags().GetStringArray("env")
	ttl, _ := cmd.Flags().GetDuration("ttl")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	if start < 1 {
		start = 1
	}
	if end < start {
		return fmt.Errorf("--end must be at least --start (%d), got %d", start, end)
	}
	if workers < 1 {
		workers = 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ranges := splitRange(start, end, workers)
	stamp := time.Now().Unix()
	names := make([]string, len(ranges))
	for i := range ranges {
		names[i] = fmt.Sprintf("phonehunt-worker-%d-%d", stamp, i)
	}

	log.Info().Int("workers", len(ranges)).Int("start", start).Int("end", end).Msg("creating workers")
	g, gctx := errgroup.WithContext(ctx)
	for i, r := range ranges {
		g.Go(func() error {
			return createWorker(gctx, log, workerSpec{
				name:    names[i],
				image:   image,
				project: project,
				zone:    zone,
				start:   r[0],
				end:     r[1],
				env:     extraEnv,
				dryRun:  dryRun,
			})
		})
	}
	createErr := g.Wait()

	out := cmd.OutOrStdout()
	for i, r := range ranges {
		fmt.Fprintf(out, "%s: rows %d-%d\n", names[i], r[0], r[1])
	}
	if createErr != nil {
		return createErr
	}

	if ttl <= 0 {
		fmt.Fprintln(out, "Workers left running; delete them with gcloud when the batches finish.")
		return nil
	}

	log.Info().Dur("ttl", ttl).Msg("waiting before teardown")
	select {
	case <-time.After(ttl):
	case <-ctx.Done():
		log.Warn().Msg("interrupted, tearing the workers down early")
	}

	// Teardown runs on a fresh context so Ctrl+C still cleans up.
	dg := new(errgroup.Group)
	for _, name := range names {
		dg.Go(func() error {
			return deleteWorker(context.Background(), log, name, project, zone, dryRun)
		})
	}
	return dg.Wait()
}

// splitRange divides [start, end] into at most n contiguous chunks of
// near-equal size.
func splitRange(start, end, n int) [][2]int {
	total := end - start + 1
	if n > total {
		n = total
	}
	base := total / n
	extra := total % n

	out := make([][2]int, 0, n)
	cur := start
	for i := 0; i < n; i++ {
		size := base
		if i < extra {
			size++
		}
		out = append(out, [2]int{cur, cur + size - 1})
		cur += size
	}
	return out
}

type workerSpec struct {
	name    string
	image   string
	project string
	zone    string
	start   int
	end     int
	env     []string
	dryRun  bool
}

func createWorker(ctx context.Context, log zerolog.Logger, spec workerSpec) error {
	env := []string{
		fmt.Sprintf("START_ROW=%d", spec.start),
		fmt.Sprintf("END_ROW=%d", spec.end),
	}
	env = append(env, spec.env...)

	args := []string{
		"compute", "instances", "create-with-container", spec.name,
		"--project", spec.project,
		"--zone", spec.zone,
		"--container-image", spec.image,
		"--container-env", strings.Join(env, ","),
		"--quiet",
	}

	gcloud := exec.CommandContext(ctx, "gcloud", args...)
	if spec.dryRun {
		log.Info().Str("cmd", strings.Join(gcloud.Args, " ")).Msg("dry run")
		return nil
	}

	output, err := gcloud.CombinedOutput()
	if err != nil {
		return fmt.Errorf("create worker %s: %w: %s", spec.name, err, strings.TrimSpace(string(output)))
	}
	log.Info().Str("worker", spec.name).Int("start", spec.start).Int("end", spec.end).Msg("worker created")
	return nil
}

func deleteWorker(ctx context.Context, log zerolog.Logger, name, project, zone string, dryRun bool) error {
	args := []string{
		"compute", "instances", "delete", name,
		"--project", project,
		"--zone", zone,
		"--quiet",
	}

	gcloud := exec.CommandContext(ctx, "gcloud", args...)
	if dryRun {
		log.Info().Str("cmd", strings.Join(gcloud.Args, " ")).Msg("dry run")
		return nil
	}

	output, err := gcloud.CombinedOutput()
	if err != nil {
		return fmt.Errorf("delete worker %s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	log.Info().Str("worker", name).Msg("worker deleted")
	return nil
}
