package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/longkey1/avcoach/internal/avatar"
	"github.com/longkey1/avcoach/internal/completion"
	"github.com/longkey1/avcoach/internal/config"
	"github.com/longkey1/avcoach/internal/heygen"
	"github.com/longkey1/avcoach/internal/i18n"
	"github.com/longkey1/avcoach/internal/logging"
	"github.com/spf13/cobra"
)

var (
	sessionProxy     string
	sessionAvatar    string
	sessionLanguage  string
	sessionKnowledge string
	sessionNoIntro   bool
	sessionAudioIn   string
)

// sessionCmd represents the session command
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Open a live avatar session in the terminal",
	Long: `Open a live streaming-avatar session and talk to it from the terminal.

The session starts muted, speaks the introduction for the selected language
(unless disabled), then starts voice chat. Typed lines are sent to the avatar
after a short pause. Avatar and user messages are printed as they complete.

With --audio-in, raw 16 kHz 16-bit mono PCM read from the given file or pipe
is streamed to the avatar as microphone input once voice chat has started.
Capturing the microphone is left to whatever writes the pipe, e.g.

  mkfifo /tmp/mic
  arecord -f S16_LE -r 16000 -c 1 -t raw > /tmp/mic &
  avcoach session --audio-in /tmp/mic

Type '/help' inside the session for the list of commands.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		startCfg := sessionConfig(cfg)
		if sessionAvatar != "" {
			startCfg.AvatarID = sessionAvatar
		}
		if sessionLanguage != "" {
			startCfg.Language = sessionLanguage
		}
		if sessionKnowledge != "" {
			startCfg.KnowledgeID = sessionKnowledge
		}

		logger := newLogger(cfg)
		catalog, err := i18n.Load()
		if err != nil {
			return err
		}
		if msg := avatarWarning(catalog, sessionAvatar); msg != "" {
			fmt.Fprintln(os.Stderr, msg)
		}
		completions, err := newCompletionService(cfg, logger)
		if err != nil {
			return err
		}

		baseURL, err := cfg.GetBaseURL(config.UpstreamHeyGen)
		if err != nil {
			baseURL = heygen.DefaultBaseURL
		}

		opts := []avatar.Option{avatar.WithLogger(logging.Component(logger, "session"))}
		if cfg.SpeakIntro && !sessionNoIntro {
			opts = append(opts, avatar.WithIntro(catalog.Intro))
		}

		session := avatar.NewContext()
		orchestrator := avatar.NewOrchestrator(session, newTokenSource(cfg, sessionProxy), &heygen.Dialer{
			BaseURL:    baseURL,
			HTTPClient: newHTTPClient(cfg),
			Logger:     logging.Component(logger, "heygen"),
		}, opts...)
		pipeline := avatar.NewPipeline(session, avatar.WithPipelineLogger(logging.Component(logger, "pipeline")))

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		term := &terminal{
			out:         os.Stdout,
			session:     session,
			pipeline:    pipeline,
			completions: completions,
			taskType:    avatar.TaskTalk,
			taskMode:    avatar.TaskAsync,
		}
		session.OnChange(term.render)

		fmt.Fprintf(os.Stderr, "Starting session with %s (%s)...\n", startCfg.AvatarID, startCfg.Language)
		if err := orchestrator.Start(ctx, startCfg); err != nil {
			return fmt.Errorf("starting session: %w", err)
		}
		defer func() {
			if err := orchestrator.Stop(context.WithoutCancel(ctx)); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to stop session: %v\n", err)
			}
		}()

		if sessionAudioIn != "" {
			go streamAudioFile(ctx, session, sessionAudioIn)
		}

		return term.run(ctx, os.Stdin)
	},
}

// avatarWarning flags an --avatar value outside the catalogue. Custom avatars are still allowed.
func avatarWarning(catalog *i18n.Catalog, id string) string {
	if id == "" || catalog.HasAvatar(id) {
		return ""
	}
	ids := make([]string, 0, len(catalog.Avatars))
	for _, a := range catalog.Avatars {
		ids = append(ids, a.ID)
	}
	return fmt.Sprintf("Warning: avatar %q is not in the catalogue (%s); using it anyway", id, strings.Join(ids, ", "))
}

// streamAudioFile forwards PCM from path to the live session until the input ends
func streamAudioFile(ctx context.Context, session *avatar.Context, path string) {
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: audio input disabled: %v\n", err)
		return
	}
	defer f.Close()
	if err := avatar.StreamAudio(ctx, session, f, avatar.AudioFrameSize); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "Warning: audio input stopped: %v\n", err)
	}
}

// terminal is the interactive front end of a live session
type terminal struct {
	out         io.Writer
	session     *avatar.Context
	pipeline    *avatar.Pipeline
	completions *completion.Service

	mu       sync.Mutex
	state    avatar.SessionState
	printed  int
	taskType avatar.TaskType
	taskMode avatar.TaskMode
	useAI    bool
}

// render prints state changes and newly completed messages
func (t *terminal) render(snap avatar.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if snap.State != t.state {
		t.state = snap.State
		fmt.Fprintf(os.Stderr, "[session %s]\n", snap.State)
	}

	messages := t.session.Messages()
	if len(messages) < t.printed {
		t.printed = 0
	}
	for _, msg := range messages[t.printed:] {
		if msg.Sender == avatar.SenderAvatar {
			fmt.Fprintf(t.out, "\nAvatar> %s\n", msg.Content)
		} else {
			fmt.Fprintf(t.out, "\nYou> %s\n", msg.Content)
		}
	}
	t.printed = len(messages)
}

func (t *terminal) run(ctx context.Context, in io.Reader) error {
	fmt.Fprintf(os.Stderr, "Type '/help' for commands, '/quit' or 'Ctrl+D' to end the session\n\n")

	lines := make(chan string)
	errCh := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		errCh <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "\nGoodbye!")
			return nil
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("input error: %w", err)
			}
			fmt.Fprintln(os.Stderr, "\nGoodbye!")
			return nil
		case line := <-lines:
			input := strings.TrimSpace(line)
			if input == "" {
				continue
			}
			if strings.HasPrefix(input, "/") {
				if !t.handleCommand(ctx, input) {
					return nil
				}
				continue
			}
			if t.session.State() != avatar.StateConnected {
				fmt.Fprintln(os.Stderr, "Session is not connected.")
				return nil
			}
			t.send(ctx, input)
		}
	}
}

// send hands typed text to the pipeline, optionally rewritten by the completion service first.
// Completion failures fall back to the typed text.
func (t *terminal) send(ctx context.Context, input string) {
	t.mu.Lock()
	taskType, taskMode, useAI := t.taskType, t.taskMode, t.useAI
	t.mu.Unlock()

	text := input
	if useAI && taskType == avatar.TaskTalk {
		res, err := t.completions.Chat(ctx, completion.ChatRequest{
			Message: input,
			History: conversationHistory(t.session.Messages()),
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: AI enhancement failed, sending original text: %v\n", err)
		} else {
			text = res.Content
		}
	}

	t.session.AddMessage(avatar.SenderClient, text)
	if err := t.pipeline.Send(ctx, text, taskType, taskMode); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
}

// conversationHistory maps session messages onto completion roles
func conversationHistory(messages []avatar.Message) []completion.Message {
	history := make([]completion.Message, 0, len(messages))
	for _, msg := range messages {
		role := completion.RoleUser
		if msg.Sender == avatar.SenderAvatar {
			role = completion.RoleAssistant
		}
		history = append(history, completion.Message{
			Role:      role,
			Content:   msg.Content,
			Timestamp: msg.At.UnixMilli(),
		})
	}
	return history
}

// handleCommand processes slash commands. Returns false to end the session.
func (t *terminal) handleCommand(ctx context.Context, command string) bool {
	command = strings.ToLower(strings.TrimSpace(command))

	switch command {
	case "/help", "/h":
		fmt.Fprintln(os.Stderr, "\nAvailable commands:")
		fmt.Fprintln(os.Stderr, "  /talk          - Avatar answers what you type (default)")
		fmt.Fprintln(os.Stderr, "  /repeat        - Avatar repeats what you type")
		fmt.Fprintln(os.Stderr, "  /sync, /async  - Wait for the avatar to finish speaking, or not")
		fmt.Fprintln(os.Stderr, "  /ai            - Toggle AI enhancement of typed messages")
		fmt.Fprintln(os.Stderr, "  /mute, /unmute - Mute or unmute voice input")
		fmt.Fprintln(os.Stderr, "  /history       - Show the conversation so far")
		fmt.Fprintln(os.Stderr, "  /summary       - Summarize the conversation")
		fmt.Fprintln(os.Stderr, "  /starters      - Suggest conversation starters")
		fmt.Fprintln(os.Stderr, "  /quit, /exit   - End the session")
		fmt.Fprintln(os.Stderr, "")

	case "/talk", "/repeat", "/sync", "/async", "/ai":
		t.mu.Lock()
		switch command {
		case "/talk":
			t.taskType = avatar.TaskTalk
		case "/repeat":
			t.taskType = avatar.TaskRepeat
		case "/sync":
			t.taskMode = avatar.TaskSync
		case "/async":
			t.taskMode = avatar.TaskAsync
		case "/ai":
			t.useAI = !t.useAI
		}
		fmt.Fprintf(os.Stderr, "Mode: %s, %s, AI enhancement: %v\n", t.taskType, t.taskMode, t.useAI)
		t.mu.Unlock()

	case "/mute", "/unmute":
		conn := t.session.Connection()
		if conn == nil {
			fmt.Fprintln(os.Stderr, "Session is not connected.")
			return true
		}
		var err error
		if command == "/mute" {
			err = conn.MuteInput()
		} else {
			err = conn.UnmuteInput()
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return true
		}
		t.session.SetMuted(command == "/mute")

	case "/history":
		for _, msg := range t.session.Messages() {
			fmt.Fprintf(os.Stderr, "  [%s] %s: %s\n", msg.At.Format("15:04:05"), msg.Sender, msg.Content)
		}

	case "/summary":
		history := conversationHistory(t.session.Messages())
		if len(history) == 0 {
			fmt.Fprintln(os.Stderr, "Nothing to summarize yet.")
			return true
		}
		res, err := t.completions.Summarize(ctx, history, completion.LengthBrief, completion.FocusKeyPoints)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return true
		}
		fmt.Fprintf(os.Stderr, "\nSummary: %s\n\n", res.Content)

	case "/starters":
		for i, starter := range t.completions.ConversationStarters(ctx, "", completion.DefaultStarterCount) {
			fmt.Fprintf(os.Stderr, "  %d. %s\n", i+1, starter)
		}

	case "/quit", "/exit", "/q":
		fmt.Fprintln(os.Stderr, "Goodbye!")
		return false

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s (type '/help' for available commands)\n", command)
	}
	return true
}

func init() {
	rootCmd.AddCommand(sessionCmd)

	sessionCmd.Flags().StringVar(&sessionProxy, "proxy", "", "credential proxy URL (default: use heygen_token directly)")
	sessionCmd.Flags().StringVarP(&sessionAvatar, "avatar", "a", "", "avatar ID (overrides config)")
	sessionCmd.Flags().StringVarP(&sessionLanguage, "language", "L", "", "avatar language (overrides config)")
	sessionCmd.Flags().StringVarP(&sessionKnowledge, "knowledge", "k", "", "knowledge base ID (overrides config)")
	sessionCmd.Flags().BoolVar(&sessionNoIntro, "no-intro", false, "let the knowledge base speak first")
	sessionCmd.Flags().StringVar(&sessionAudioIn, "audio-in", "", "file or pipe of raw 16 kHz 16-bit mono PCM to stream as voice input")
}
