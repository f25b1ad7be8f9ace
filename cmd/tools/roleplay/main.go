package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/novel-roleplay/backend/internal/config"
	"github.com/zhouzirui/novel-roleplay/backend/internal/model/dialogue"
	"github.com/zhouzirui/novel-roleplay/backend/internal/service/novelapi"
	roleplayService "github.com/zhouzirui/novel-roleplay/backend/internal/service/roleplay"
	roleplayUI "github.com/zhouzirui/novel-roleplay/backend/internal/ui/roleplay"
)

type globalOptions struct {
	baseURL string
	timeout time.Duration
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "roleplay",
		Short:         "Terminal viewer for protagonist roleplay of generated novels",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.baseURL, "base-url", "", "novel generator API base URL (default NOVEL_API_BASE_URL)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 0, "per-request timeout (default NOVEL_API_TIMEOUT)")

	root.AddCommand(newPlayCmd(opts))
	root.AddCommand(newNovelsCmd(opts))
	root.AddCommand(newChaptersCmd(opts))
	return root
}

func loadConfig(opts *globalOptions) (*config.Config, *novelapi.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("配置加载失败: %w", err)
	}
	if opts.baseURL != "" {
		cfg.Backend.BaseURL = opts.baseURL
	}
	if opts.timeout > 0 {
		cfg.Backend.Timeout = opts.timeout
	}
	return cfg, novelapi.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout), nil
}

func newPlayCmd(opts *globalOptions) *cobra.Command {
	var (
		novelID string
		chapter int
		logFile string
	)

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Walk through a chapter as the protagonist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, client, err := loadConfig(opts)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Backend.Timeout)
			n, err := client.GetNovel(ctx, novelID)
			if err != nil {
				cancel()
				return fmt.Errorf("load novel %s: %w", novelID, err)
			}
			ch, err := client.GetChapter(ctx, novelID, chapter)
			cancel()
			if err != nil {
				return fmt.Errorf("load chapter %d: %w", chapter, err)
			}
			if !ch.Playable() {
				return fmt.Errorf("%w: chapter %d status=%s", roleplayService.ErrChapterNotReady, chapter, ch.Status)
			}

			// The sequencer logs; keep it off the alternate screen.
			if logFile != "" {
				f, err := tea.LogToFile(logFile, "roleplay")
				if err != nil {
					return err
				}
				defer f.Close()
			} else {
				log.SetOutput(io.Discard)
			}

			sink := &roleplayUI.ProgramSink{}
			seq, err := roleplayService.NewSequencer(client, sink,
				dialogue.Session{NovelID: novelID, ChapterNumber: chapter}, cfg.Pacing)
			if err != nil {
				return err
			}
			defer seq.Close()

			title := fmt.Sprintf("%s · %s", n.Title, ch.Title)
			p := tea.NewProgram(roleplayUI.New(seq, title, cfg.Pacing.AdvanceCeiling), tea.WithAltScreen())
			sink.Attach(p)

			_, err = p.Run()
			return err
		},
	}
	cmd.Flags().StringVar(&novelID, "novel", "", "novel id")
	cmd.Flags().IntVar(&chapter, "chapter", 1, "chapter number")
	cmd.Flags().StringVar(&logFile, "log-file", "", "write logs to this file while the viewer runs")
	_ = cmd.MarkFlagRequired("novel")
	return cmd
}

func newNovelsCmd(opts *globalOptions) *cobra.Command {
	var skip, limit int

	cmd := &cobra.Command{
		Use:   "novels",
		Short: "List generated novels",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, client, err := loadConfig(opts)
			if err != nil {
				return err
			}
			novels, err := client.ListNovels(cmd.Context(), skip, limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tCHAPTERS")
			for _, n := range novels {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\n", n.ID, n.Title, n.Status, n.CompletedChapters, n.TotalChapters)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&skip, "skip", 0, "number of novels to skip")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of novels")
	return cmd
}

func newChaptersCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chapters <novelID>",
		Short: "List the chapters of a novel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, err := loadConfig(opts)
			if err != nil {
				return err
			}
			chapters, err := client.ListChapters(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "NO.\tTITLE\tSTATUS\tWORDS\tPLAYABLE")
			for _, ch := range chapters {
				_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%t\n", ch.ChapterNumber, ch.Title, ch.Status, ch.WordCount, ch.Playable())
			}
			return w.Flush()
		},
	}
}
