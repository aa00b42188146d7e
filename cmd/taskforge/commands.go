package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hochfrequenz/taskforge/internal/batch"
	"github.com/hochfrequenz/taskforge/internal/config"
	"github.com/hochfrequenz/taskforge/internal/engine"
	"github.com/hochfrequenz/taskforge/internal/generate"
	"github.com/hochfrequenz/taskforge/internal/goalfile"
	"github.com/hochfrequenz/taskforge/internal/notify"
	"github.com/hochfrequenz/taskforge/internal/progress"
	"github.com/hochfrequenz/taskforge/internal/runner"
	"github.com/hochfrequenz/taskforge/internal/store"
	"github.com/hochfrequenz/taskforge/web/api"
)

var (
	generateOwner string
	generateWait  bool
	cancelReason  string
	servePort     int
)

func init() {
	importCmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import a goal definition from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}
	rootCmd.AddCommand(importCmd)

	generateCmd := &cobra.Command{
		Use:   "generate GOAL",
		Short: "Generate tasks for all actions of a goal",
		Args:  cobra.ExactArgs(1),
		RunE:  runGenerate,
	}
	generateCmd.Flags().StringVar(&generateOwner, "owner", "", "require the goal to belong to this owner")
	generateCmd.Flags().BoolVar(&generateWait, "wait", false, "wait for the run to finish, printing progress")
	rootCmd.AddCommand(generateCmd)

	statusCmd := &cobra.Command{
		Use:   "status HANDLE",
		Short: "Show the status of a generation run",
		Args:  cobra.ExactArgs(1),
		RunE:  runStatus,
	}
	rootCmd.AddCommand(statusCmd)

	cancelCmd := &cobra.Command{
		Use:   "cancel HANDLE",
		Short: "Cancel a running generation run",
		Args:  cobra.ExactArgs(1),
		RunE:  runCancel,
	}
	cancelCmd.Flags().StringVar(&cancelReason, "reason", "", "reason to record on the cancelled run")
	rootCmd.AddCommand(cancelCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List goals",
		RunE:  runList,
	}
	rootCmd.AddCommand(listCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web API, scheduler, and config watcher",
		RunE:  runServe,
	}
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	return config.Load(path)
}

func buildNotifier(cfg *config.Config) notify.Notifier {
	var notifiers []notify.Notifier
	if cfg.Notifications.Desktop {
		notifiers = append(notifiers, notify.NewDesktopNotifier(true))
	}
	if cfg.Notifications.SlackWebhook != "" {
		notifiers = append(notifiers, notify.NewSlackNotifier(cfg.Notifications.SlackWebhook))
	}
	if len(notifiers) == 0 {
		return notify.NoopNotifier{}
	}
	return notify.NewMultiNotifier(notifiers...)
}

// buildRunner wires the store, model, engine, and notifier into a Runner
func buildRunner(cfg *config.Config, s *store.Store) (*runner.Runner, error) {
	model, err := generate.NewModel(cfg.Generation.Provider, cfg.Generation.Model)
	if err != nil {
		return nil, err
	}
	gen := generate.NewLLMGenerator(model, cfg.Generation.MaxTokens)

	eng := engine.NewLocalEngine(0)
	r := runner.New(s, gen, eng, buildNotifier(cfg), runner.Config{
		BatchSize:       cfg.General.BatchSize,
		MaxParallel:     cfg.General.MaxParallelGenerations,
		SecondsPerItem:  cfg.General.AvgSecondsPerItem,
		CleanupOnCancel: cfg.General.CleanupOnCancel,
	})
	eng.RegisterTemplate(runner.TemplateGenerateTasks, r.Execute)
	return r, nil
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	s, err := store.New(cfg.General.DatabasePath)
	if err != nil {
		return err
	}
	defer s.Close()

	goal, actions, err := goalfile.Import(s, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Imported goal %q (%s) with %d actions\n", goal.Title, goal.ID, len(actions))
	return nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	s, err := store.New(cfg.General.DatabasePath)
	if err != nil {
		return err
	}
	defer s.Close()

	r, err := buildRunner(cfg, s)
	if err != nil {
		return err
	}

	ctx := context.Background()
	handle, err := r.StartGeneration(ctx, args[0], generateOwner)
	if err != nil {
		return err
	}
	fmt.Printf("Started run %s\n", handle)

	if !generateWait {
		fmt.Printf("Poll with: taskforge status %s\n", handle)
		return nil
	}

	for {
		time.Sleep(2 * time.Second)
		st, err := r.GetStatus(ctx, handle)
		if err != nil {
			return err
		}

		if st.Status.Terminal() {
			fmt.Printf("\nRun %s: %s\n", handle, st.Status)
			if st.Output != nil {
				fmt.Println(st.Output.Message)
			}
			if st.Error != "" {
				fmt.Printf("Error: %s\n", st.Error)
			}
			return nil
		}

		eta := humanize.RelTime(time.Now(), time.Now().Add(time.Duration(st.ETASeconds)*time.Second), "remaining", "")
		fmt.Printf("\rBatch %d/%d  %d/%d actions  %d%%  %s   ",
			st.CurrentBatch, st.TotalBatches, st.ProcessedItems, st.TotalItems,
			st.ProgressPercentage, eta)
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	s, err := store.New(cfg.General.DatabasePath)
	if err != nil {
		return err
	}
	defer s.Close()

	r, err := buildRunner(cfg, s)
	if err != nil {
		return err
	}

	st, err := r.GetStatus(context.Background(), args[0])
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Run:\t%s\n", st.Handle)
	fmt.Fprintf(w, "Goal:\t%s\n", st.GoalID)
	fmt.Fprintf(w, "Status:\t%s\n", st.Status)
	fmt.Fprintf(w, "Started:\t%s\n", humanize.Time(st.StartedAt))
	if st.StoppedAt != nil {
		fmt.Fprintf(w, "Stopped:\t%s\n", humanize.Time(*st.StoppedAt))
	}
	fmt.Fprintf(w, "Progress:\t%d/%d actions (%d%%), batch %d/%d\n",
		st.ProcessedItems, st.TotalItems, st.ProgressPercentage, st.CurrentBatch, st.TotalBatches)
	if !st.Status.Terminal() {
		fmt.Fprintf(w, "ETA:\t%s\n",
			humanize.RelTime(time.Now(), time.Now().Add(time.Duration(st.ETASeconds)*time.Second), "remaining", ""))
	}
	if st.Output != nil {
		fmt.Fprintf(w, "Verdict:\t%s\n", st.Output.Verdict)
		fmt.Fprintf(w, "Result:\t%s\n", st.Output.Message)
	}
	if st.Error != "" {
		fmt.Fprintf(w, "Error:\t%s\n", st.Error)
	}
	return w.Flush()
}

func runCancel(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	s, err := store.New(cfg.General.DatabasePath)
	if err != nil {
		return err
	}
	defer s.Close()

	r, err := buildRunner(cfg, s)
	if err != nil {
		return err
	}

	res, err := r.Cancel(context.Background(), args[0], cancelReason)
	if err != nil {
		return err
	}
	fmt.Printf("Run %s: %s at %s\n", args[0], res.Status, res.StoppedAt.Format(time.RFC3339))
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	s, err := store.New(cfg.General.DatabasePath)
	if err != nil {
		return err
	}
	defer s.Close()

	goals, err := s.ListGoals()
	if err != nil {
		return err
	}
	if len(goals) == 0 {
		fmt.Println("No goals. Import one with: taskforge import FILE")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tOWNER\tSTATUS")
	for _, g := range goals {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", g.ID, g.Title, g.OwnerID, g.Status)
	}
	return w.Flush()
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort > 0 {
		cfg.Web.Port = servePort
	}

	s, err := store.New(cfg.General.DatabasePath)
	if err != nil {
		return err
	}
	defer s.Close()

	r, err := buildRunner(cfg, s)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	server := api.NewServer(s, r, addr)

	r.SetProgressFunc(func(handle, goalID string, snap progress.Snapshot) {
		server.Broadcast(api.ProgressEvent(handle, goalID, snap))
	})

	sched, err := startScheduler(cfg, r, buildNotifier(cfg))
	if err != nil {
		return err
	}
	var schedMu sync.Mutex
	defer func() {
		schedMu.Lock()
		if sched != nil {
			sched.Stop()
		}
		schedMu.Unlock()
	}()

	// Config edits swap the schedule set without a restart
	watcher, err := config.NewWatcher(configFile(), func(newCfg *config.Config) {
		newSched, err := startScheduler(newCfg, r, buildNotifier(newCfg))
		if err != nil {
			log.Printf("applying reloaded schedules: %v", err)
			return
		}
		log.Printf("config reloaded, applying %d schedules", len(newCfg.Schedules))

		schedMu.Lock()
		if sched != nil {
			sched.Stop()
		}
		sched = newSched
		schedMu.Unlock()
	})
	if err != nil {
		log.Printf("config watcher disabled: %v", err)
	} else {
		watcher.Start(context.Background())
		defer watcher.Stop()
	}

	log.Printf("taskforge listening on http://%s", addr)
	return server.Start()
}

func configFile() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

// startScheduler launches scheduled regeneration runs, if any are configured
func startScheduler(cfg *config.Config, r *runner.Runner, notifier notify.Notifier) (*batch.Scheduler, error) {
	if len(cfg.Schedules) == 0 {
		return nil, nil
	}

	sched, err := batch.NewScheduler(cfg.Schedules)
	if err != nil {
		return nil, err
	}

	go sched.Start(func(e batch.ScheduleEntry) error {
		ctx := context.Background()
		handle, err := r.StartGeneration(ctx, e.Goal, "")
		if err != nil {
			return err
		}
		log.Printf("scheduled run %s started for goal %s", handle, e.Goal)

		for {
			time.Sleep(5 * time.Second)
			st, err := r.GetStatus(ctx, handle)
			if err != nil {
				return err
			}
			if st.Status.Terminal() {
				log.Printf("scheduled run %s for goal %s: %s", handle, e.Goal, st.Status)
				if e.NotifyOnComplete {
					notifier.Send(notify.Notification{
						Title:     "Scheduled generation finished",
						Message:   fmt.Sprintf("Run for goal %s finished with status %s.", e.Goal, st.Status),
						Type:      notify.NotifyInfo,
						GoalID:    e.Goal,
						RunHandle: handle,
					})
				}
				return nil
			}
		}
	})
	return sched, nil
}
