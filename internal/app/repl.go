package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/manifoldco/promptui"

	"github.com/fpt/cobrowse/internal/tool"
	"github.com/fpt/cobrowse/pkg/agent/domain"
	"github.com/fpt/cobrowse/pkg/message"
)

// SlashCommand represents a command that starts with /
type SlashCommand struct {
	Name        string
	Description string
	Handler     func(r *REPL, args string) bool // Returns true if should exit
}

// REPL is the terminal front-end of a session.
type REPL struct {
	session *Session
	llm     domain.LLM
	out     io.Writer
	// notice replaces chat when no model is configured
	notice      string
	historyFile string
}

// NewREPL creates a REPL over session. llm may be nil, in which case notice
// is shown instead of chat replies.
func NewREPL(session *Session, llm domain.LLM, notice string, out io.Writer) *REPL {
	if out == nil {
		out = os.Stdout
	}
	return &REPL{session: session, llm: llm, out: out, notice: notice}
}

// getSlashCommands returns all available slash commands
func getSlashCommands() []SlashCommand {
	return []SlashCommand{
		{
			Name:        "help",
			Description: "Show available commands and usage information",
			Handler: func(r *REPL, _ string) bool {
				r.showHelp()
				return false
			},
		},
		{
			Name:        "history",
			Description: "Show conversation history",
			Handler: func(r *REPL, _ string) bool {
				r.showHistory()
				return false
			},
		},
		{
			Name:        "clear",
			Description: "Clear conversation history and restore highlighted elements",
			Handler: func(r *REPL, _ string) bool {
				r.session.Clear()
				fmt.Fprintln(r.out, "🧹 Conversation history cleared.")
				return false
			},
		},
		{
			Name:        "summary",
			Description: "Print the page summary the assistant sees",
			Handler: func(r *REPL, _ string) bool {
				r.runTool(message.NewToolInvocation(tool.ToolGetPageSummary, nil))
				return false
			},
		},
		{
			Name:        "sections",
			Description: "List the sections discovered on the page",
			Handler: func(r *REPL, _ string) bool {
				r.showSections()
				return false
			},
		},
		{
			Name:        "tools",
			Description: "List the browser tools and their parameters",
			Handler: func(r *REPL, _ string) bool {
				for _, d := range tool.Catalogue() {
					fmt.Fprintf(r.out, "  %-18s %s %s\n", d.Name, d.Description, d.ParametersJSON())
				}
				return false
			},
		},
		{
			Name:        "run",
			Description: `Run a tool directly: /run {"name":"scroll_to_section","parameters":{"sectionId":"skills"}}`,
			Handler: func(r *REPL, args string) bool {
				var inv message.ToolInvocation
				if err := json.Unmarshal([]byte(args), &inv); err != nil || inv.Name == "" {
					fmt.Fprintln(r.out, `❌ Usage: /run {"name":"tool","parameters":{}}`)
					return false
				}
				r.runTool(message.NewToolInvocation(inv.Name, inv.Parameters))
				return false
			},
		},
		{
			Name:        "quick",
			Description: "Pick one of the quick actions",
			Handler: func(r *REPL, _ string) bool {
				r.showQuickActions()
				return false
			},
		},
		{
			Name:        "status",
			Description: "Show current session status and token usage",
			Handler: func(r *REPL, _ string) bool {
				r.showStatus()
				return false
			},
		},
		{
			Name:        "quit",
			Description: "Exit the interactive session",
			Handler: func(r *REPL, _ string) bool {
				fmt.Fprintln(r.out, "👋 Goodbye!")
				return true
			},
		},
		{
			Name:        "exit",
			Description: "Exit the interactive session (alias for quit)",
			Handler: func(r *REPL, _ string) bool {
				fmt.Fprintln(r.out, "👋 Goodbye!")
				return true
			},
		},
	}
}

// handleSlashCommand processes commands that start with /
// Returns true if the command requests program exit, false otherwise
func (r *REPL) handleSlashCommand(input string) bool {
	if strings.TrimSpace(input) == "/" {
		return r.showCommandSelector()
	}

	name, args, _ := strings.Cut(strings.TrimSpace(input), " ")
	commandName := strings.TrimPrefix(name, "/")
	commands := getSlashCommands()

	for _, cmd := range commands {
		if cmd.Name == commandName {
			return cmd.Handler(r, strings.TrimSpace(args))
		}
	}

	fmt.Fprintf(r.out, "❌ Unknown command: /%s\n", commandName)
	fmt.Fprintln(r.out, "💡 Available commands:")
	for _, cmd := range commands {
		fmt.Fprintf(r.out, "  /%s - %s\n", cmd.Name, cmd.Description)
	}
	fmt.Fprintln(r.out, "\n💡 Tip: Type just '/' to see an interactive command selector!")
	return false
}

// showCommandSelector shows an interactive command selector using promptui
func (r *REPL) showCommandSelector() bool {
	commands := getSlashCommands()

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}?",
		Active:   "▸ {{ .Name | cyan }} - {{ .Description | faint }}",
		Inactive: "  {{ .Name | cyan }} - {{ .Description | faint }}",
		Selected: "{{ .Name | red | cyan }}",
	}

	searcher := func(input string, index int) bool {
		name := strings.ToLower(commands[index].Name)
		return strings.Contains(name, strings.ToLower(strings.TrimSpace(input)))
	}

	prompt := promptui.Select{
		Label:     "Choose a command",
		Items:     commands,
		Templates: templates,
		Size:      10,
		Searcher:  searcher,
	}

	i, _, err := prompt.Run()
	if err != nil {
		if err == promptui.ErrInterrupt {
			fmt.Fprintln(r.out, "\nCancelled.")
			return false
		}
		fmt.Fprintf(r.out, "Command selection failed: %v\n", err)
		return false
	}
	return commands[i].Handler(r, "")
}

func (r *REPL) showQuickActions() {
	actions := r.session.QuickActions()
	prompt := promptui.Select{
		Label: "Quick actions",
		Items: actions,
		Templates: &promptui.SelectTemplates{
			Label:    "{{ . }}",
			Active:   "▸ {{ .Label | cyan }} {{ .Query | faint }}",
			Inactive: "  {{ .Label | cyan }} {{ .Query | faint }}",
			Selected: "{{ .Query }}",
		},
		Size: len(actions),
	}
	i, _, err := prompt.Run()
	if err != nil {
		fmt.Fprintln(r.out, "\nCancelled.")
		return
	}
	r.Ask(context.Background(), actions[i].Query)
}

// HandleLine processes one line of input. It returns true when the user asked to exit.
func (r *REPL) HandleLine(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if strings.HasPrefix(line, "/") {
		return r.handleSlashCommand(line)
	}
	r.Ask(ctx, line)
	return false
}

// Ask sends query to the session, prints the reply and runs the proposed tool.
func (r *REPL) Ask(ctx context.Context, query string) {
	if !r.session.ChatAvailable() {
		fmt.Fprintf(r.out, "⚠️  %s\n", r.notice)
		fmt.Fprintln(r.out, "💡 Slash commands such as /summary, /sections and /run still work.")
		return
	}

	reply, err := r.session.ProcessQuery(ctx, query, "")
	if err != nil {
		if err == context.Canceled {
			fmt.Fprintln(r.out, "🔄 Ready for next command.")
			return
		}
		fmt.Fprintf(r.out, "❌ %s\n", GenericErrorReply)
		return
	}

	WriteResponseHeader(r.out, r.llm.ModelID(), true)
	fmt.Fprintln(r.out, reply.Text)
	if reply.Invocation != nil {
		r.runTool(*reply.Invocation)
	}
}

func (r *REPL) runTool(inv message.ToolInvocation) {
	outcome, err := r.session.Execute(context.Background(), inv)
	if err != nil {
		fmt.Fprintf(r.out, "❌ %v\n", err)
		return
	}
	if !outcome.Success {
		fmt.Fprintln(r.out, FailureMessage(outcome))
		return
	}
	fmt.Fprintf(r.out, "🔧 %s\n", outcome.Message)
	if s, ok := outcome.Data.(string); ok && s != "" {
		fmt.Fprintln(r.out, s)
	}
}

func (r *REPL) showSections() {
	snap, err := r.session.Tools().Page().Snapshot(context.Background())
	if err != nil {
		fmt.Fprintf(r.out, "❌ %v\n", err)
		return
	}
	sections := tool.ExtractVisibleContent(snap)
	if len(sections) == 0 {
		fmt.Fprintln(r.out, "📄 No sections found.")
		return
	}
	for _, s := range sections {
		fmt.Fprintf(r.out, "  %-22s %-32s top=%.0f height=%.0f  %s\n",
			s.ID, s.Title, s.Position.Top, s.Position.Height, strings.Join(s.Selectors, " "))
	}
}

func (r *REPL) showHistory() {
	history := r.session.History()
	if len(history) == 0 {
		fmt.Fprintln(r.out, "📜 No conversation history found.")
		return
	}
	fmt.Fprintln(r.out, strings.Repeat("-", 50))
	for _, m := range history {
		fmt.Fprintln(r.out, m.TruncatedString())
	}
	fmt.Fprintln(r.out, strings.Repeat("-", 50))
}

func (r *REPL) showHelp() {
	commands := getSlashCommands()
	fmt.Fprintln(r.out, "\n📚 Interactive Commands:")
	fmt.Fprintln(r.out, "  /                - Show interactive command selector")
	for _, cmd := range commands {
		fmt.Fprintf(r.out, "  /%-15s - %s\n", cmd.Name, cmd.Description)
	}
	fmt.Fprintln(r.out, "\n⌨️  Keys:")
	fmt.Fprintln(r.out, "  Ctrl+C           - Cancel the running request")
	fmt.Fprintln(r.out, "  Tab              - Auto-complete commands")
	fmt.Fprintln(r.out, "\n💡 Example requests:")
	for _, a := range r.session.QuickActions() {
		fmt.Fprintf(r.out, "  > %s\n", a.Query)
	}
}

func (r *REPL) showStatus() {
	history := r.session.History()
	users := 0
	for _, m := range history {
		if m.Type() == message.MessageTypeUser {
			users++
		}
	}
	fmt.Fprintln(r.out, "\n📊 Session Status:")
	fmt.Fprintf(r.out, "  💬 Turns: %d (%d from you)\n", len(history), users)
	if r.llm == nil {
		fmt.Fprintf(r.out, "  🧠 Model: not configured (%s)\n", r.notice)
	} else {
		fmt.Fprintf(r.out, "  🧠 Model: %s\n", r.llm.ModelID())
		in, out, total := r.session.TokenUsage()
		fmt.Fprintf(r.out, "  🔢 Tokens: %d (in:%d out:%d)\n", total, in, out)
		fmt.Fprintf(r.out, "  %s\n", NewContextDisplay().FormatContextUsage(history, r.llm))
	}
	fmt.Fprintf(r.out, "  ✨ Highlights pending: %d\n", r.session.Tools().Highlighter().Pending())
}

// WithHistoryFile keeps slash commands recallable across runs. Chat lines
// stay in memory only.
func (r *REPL) WithHistoryFile(path string) *REPL {
	r.historyFile = path
	return r
}

// Run starts the readline loop and blocks until the user quits.
func (r *REPL) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:                 "> ",
		AutoComplete:           createAutoCompleter(),
		InterruptPrompt:        "^C",
		EOFPrompt:              "exit",
		HistorySearchFold:      true,
		HistoryFile:            r.historyFile,
		HistoryLimit:           500,
		DisableAutoSaveHistory: true,
		FuncFilterInputRune:    filterInput,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize interactive mode: %w", err)
	}
	defer rl.Close()

	WriteSplashScreen(r.out, true)
	if r.llm != nil {
		fmt.Fprintf(r.out, "🧠 Model: %s\n", r.llm.ModelID())
	} else {
		fmt.Fprintf(r.out, "⚠️  %s\n", r.notice)
	}
	fmt.Fprintf(r.out, "📄 Page: %s\n", pageURL(r.session.Tools().Page()))
	fmt.Fprintln(r.out, "💬 Commands start with '/', everything else goes to the assistant.")
	fmt.Fprintln(r.out, strings.Repeat("=", 60))
	WriteResponseHeader(r.out, "greeting", true)
	fmt.Fprintln(r.out, r.session.Greeting())

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			}
			continue
		} else if err == io.EOF {
			break
		}

		if strings.HasPrefix(strings.TrimSpace(line), "/") {
			_ = rl.SaveHistory(line)
			if r.HandleLine(ctx, line) {
				break
			}
			continue
		}

		// Ctrl+C while the model is working cancels the request instead of the REPL
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT)
		done := make(chan struct{})
		go func() {
			select {
			case <-sigChan:
				fmt.Fprintln(r.out)
				r.session.Cancel()
			case <-done:
			}
		}()

		r.HandleLine(ctx, line)

		signal.Stop(sigChan)
		close(done)
	}
	return nil
}

// pageURL reports the page location when the implementation exposes one.
func pageURL(p tool.Page) string {
	switch u := p.(type) {
	case interface{ URL() string }:
		return u.URL()
	case interface{ URL() (string, error) }:
		if s, err := u.URL(); err == nil {
			return s
		}
	}
	return "(unknown)"
}

// createAutoCompleter creates an autocompletion function for readline
func createAutoCompleter() *readline.PrefixCompleter {
	var pcItems []readline.PrefixCompleterInterface
	for _, cmd := range getSlashCommands() {
		pcItems = append(pcItems, readline.PcItem("/"+cmd.Name))
	}
	pcItems = append(pcItems, readline.PcItem("/"))
	return readline.NewPrefixCompleter(pcItems...)
}

// filterInput filters input runes to handle special keys
func filterInput(r rune) (rune, bool) {
	switch r {
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}
