package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"chatdev/internal/app"
	"chatdev/internal/chat"
	"chatdev/internal/client"
	"chatdev/internal/config"
	"chatdev/internal/fileutil"
	"chatdev/internal/highlight"
	"chatdev/internal/preview"
	"chatdev/internal/security"
	"chatdev/internal/session"
	"chatdev/internal/state"
	"chatdev/internal/ui"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

func newCreateCmd() *cobra.Command {
	var (
		project string
		follow  bool
	)
	cmd := &cobra.Command{
		Use:   "create <task...>",
		Short: "Start a generation session",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, cleanup, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			sess, err := a.SubmitTask(ctx, strings.Join(args, " "), project)
			if err != nil {
				return errors.New(app.Describe(err))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "session %s (%s)\n", sess.ID, sess.ProjectName)
			if !follow {
				return nil
			}
			return followSession(ctx, a, sess.ID, out)
		},
	}
	cmd.Flags().StringVarP(&project, "project", "p", "", "project name (derived from the task when empty)")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "print the conversation until generation ends")
	return cmd
}

var errStopped = errors.New("generation stopped before completing")

// followSession prints new conversation entries until generation stops.
func followSession(ctx context.Context, a *app.App, id string, w io.Writer) error {
	renderer := ui.NewChatRenderer(ui.DefaultStyles(), a.Config().UI.MarkdownStyle)

	wake := make(chan struct{}, 1)
	unsubscribe := a.Subscribe(func(state.State) {
		select {
		case wake <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	printed := 0
	for {
		s := a.Snapshot()
		if s.CurrentID != id {
			return nil
		}
		for _, e := range s.Chat.Since(printed) {
			fmt.Fprintln(w, renderer.Entry(e))
		}
		printed = s.Chat.Len()

		if !s.Generating {
			last, _ := s.Chat.Last()
			switch {
			case last.Kind == chat.KindError:
				return errors.New(last.Content)
			case s.Chat.HasPendingGeneration():
				return errStopped
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-wake:
		}
	}
}

func newSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"ls"},
		Short:   "List sessions known to the service",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, cleanup, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			sessions, err := a.RefreshSessions(ctx)
			if err != nil {
				return errors.New(app.Describe(err))
			}
			if len(sessions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sessions.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), sessionTable(sessions))
			return nil
		},
	}
}

func sessionTable(sessions []session.Session) string {
	header := lipgloss.NewStyle().Bold(true).Foreground(ui.ColorPrimary).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ui.ColorBorder)).
		Headers("ID", "PROJECT", "STATUS", "MODEL", "CREATED").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
	for _, s := range sessions {
		t.Row(s.ID, s.ProjectName, s.Status, s.ModelType, s.CreatedAt)
	}
	return t.Render()
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <session-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a session",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, cleanup, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if err := a.DeleteSession(ctx, args[0]); err != nil {
				if client.IsNotFound(err) {
					return fmt.Errorf("no session %s on %s", args[0], a.Config().Server.BaseURL)
				}
				return errors.New(app.Describe(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func newFilesCmd() *cobra.Command {
	var (
		show   string
		copyTo string
		outDir string
	)
	cmd := &cobra.Command{
		Use:   "files <session-id>",
		Short: "List, print, copy or download a session's generated files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, cleanup, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			files, err := a.FetchFiles(ctx, args[0])
			if err != nil {
				if client.IsNotFound(err) {
					return fmt.Errorf("no session %s on %s", args[0], a.Config().Server.BaseURL)
				}
				return errors.New(app.Describe(err))
			}
			out := cmd.OutOrStdout()

			switch {
			case show != "":
				f, err := findFile(files, show)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, highlight.New(a.Config().UI.HighlightStyle).File(f))
			case copyTo != "":
				f, err := findFile(files, copyTo)
				if err != nil {
					return err
				}
				if err := clipboard.WriteAll(f.Content); err != nil {
					return fmt.Errorf("copy to clipboard: %w", err)
				}
				fmt.Fprintf(out, "copied %s (%d bytes)\n", f.Path, len(f.Content))
			case outDir != "":
				n, err := writeFiles(outDir, files)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "wrote %d file(s) to %s\n", n, outDir)
			default:
				listFiles(out, files)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&show, "show", "", "print a file with syntax highlighting")
	cmd.Flags().StringVar(&copyTo, "copy", "", "copy a file's content to the clipboard")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "write all files under this directory")
	cmd.MarkFlagsMutuallyExclusive("show", "copy", "out")
	return cmd
}

func findFile(files []session.File, path string) (session.File, error) {
	for _, f := range files {
		if f.Path == path || f.Name == path {
			return f, nil
		}
	}
	return session.File{}, fmt.Errorf("no generated file %q", path)
}

func listFiles(w io.Writer, files []session.File) {
	if len(files) == 0 {
		fmt.Fprintln(w, "No generated files.")
		return
	}
	entry, _ := preview.EntryPoint(files)
	for _, f := range files {
		mark := " "
		if f.Path == entry.Path {
			mark = "*"
		}
		fmt.Fprintf(w, "%s %8d  %-10s %s\n", mark, f.Size, highlight.DetectLanguage(f.Path), f.Path)
	}
}

// writeFiles saves files under dir. Paths come from the service and must
// stay inside dir.
func writeFiles(dir string, files []session.File) (int, error) {
	n := 0
	for _, f := range files {
		rel := f.Path
		if rel == "" {
			rel = security.SanitizeFilename(f.Name)
		}
		dst, err := security.JoinPathSafe(dir, rel)
		if err != nil {
			return n, fmt.Errorf("refusing to write %q: %w", rel, err)
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return n, fmt.Errorf("create directory for %s: %w", rel, err)
		}
		if err := fileutil.AtomicWrite(dst, []byte(f.Content), 0o644); err != nil {
			return n, fmt.Errorf("write %s: %w", rel, err)
		}
		n++
	}
	return n, nil
}

func newLoginCmd() *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "login <provider>",
		Short: "Store an API key for a provider",
		Long: `Store an API key for a provider (` + strings.Join(config.Providers(), ", ") + `).
The key is read from --key or, when omitted, from the first line of stdin.
An empty key removes the stored one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := args[0]
			if _, ok := config.LookupProvider(provider); !ok {
				return fmt.Errorf("unknown provider %q (known: %s)", provider, strings.Join(config.Providers(), ", "))
			}

			if !cmd.Flags().Changed("key") {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return fmt.Errorf("read key: %w", err)
				}
				key = line
			}
			key = strings.TrimSpace(key)

			a, _, cleanup, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			a.SetCredential(provider, key)
			if key == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s key\n", provider)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "saved %s key %s\n", provider, security.MaskKey(key))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "API key (read from stdin when omitted)")
	return cmd
}

func newModelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "model [provider/model]",
		Short: "Show the available models or select one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, cleanup, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				provider, model, ok := strings.Cut(args[0], "/")
				if !ok {
					return fmt.Errorf("expected provider/model, got %q", args[0])
				}
				if err := a.SetModel(config.ModelSelection{Provider: provider, Model: model}); err != nil {
					return err
				}
				fmt.Fprintf(out, "model set to %s\n", args[0])
				return nil
			}

			current := a.Snapshot().Model
			for _, p := range config.Catalog {
				fmt.Fprintf(out, "%s (key: %s):\n", p.Name, keyStatus(a.Credentials().Lookup(p.ID)))
				for _, m := range p.Models {
					mark := " "
					if current.Provider == p.ID && current.Model == m.ID {
						mark = "*"
					}
					fmt.Fprintf(out, " %s %s/%s  %s (%s)\n", mark, p.ID, m.ID, m.Name, m.Description)
				}
			}
			return nil
		},
	}
}

// keyStatus describes where a provider key came from without printing it.
func keyStatus(k *security.LoadedKey) string {
	if !k.IsSet() {
		return "not set"
	}
	return fmt.Sprintf("%s, %s", k.Source, security.MaskKey(k.Value))
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the service is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, cleanup, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			h, err := a.Health(ctx)
			if err != nil {
				return errors.New(app.Describe(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s)\n", a.Config().Server.BaseURL, h.Status, h.Timestamp)
			return nil
		},
	}
}
