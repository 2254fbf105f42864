// Package bot is the Telegram command surface: /register, /check, /status
// and the suspend/resume controls.
package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"lolwatch/internal/metrics"
	kit "lolwatch/internal/transport"
	logx "lolwatch/pkg/logx"
)

type Access int

const (
	AccessEveryone Access = iota
	AccessOwnerOnly
)

type Command struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string
	Access      Access
	// BypassSuspend lets a command run while the bot is suspended
	// (the owner still needs a way back in).
	BypassSuspend bool
	Timeout       time.Duration
	Handle        HandlerFunc
}

type Request struct {
	Update  kit.Update
	Chat    kit.ChatTarget
	FromID  int64
	Command string
	Args    []string

	Adapter kit.Adapter
	Logger  logx.Logger
}

// Reply sends text back to the chat the request came from.
func (r *Request) Reply(ctx context.Context, text string) error {
	_, err := r.Adapter.SendText(ctx, r.Chat, text, nil)
	return err
}

type HandlerFunc func(ctx context.Context, req *Request) error

type Middleware func(next HandlerFunc) HandlerFunc

func Chain(h HandlerFunc, m ...Middleware) HandlerFunc {
	for i := len(m) - 1; i >= 0; i-- {
		h = m[i](h)
	}
	return h
}

func MWTimeout(d time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			if d <= 0 {
				return next(ctx, req)
			}
			cctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(cctx, req)
		}
	}
}

func MWPanicRecover(log logx.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("panic recovered",
						logx.Any("panic", r),
						logx.String("stack", string(debug.Stack())),
					)
					err = fmt.Errorf("panic: %v", r)
				}
			}()
			return next(ctx, req)
		}
	}
}

func MWRequestLog(log logx.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			start := time.Now()
			err := next(ctx, req)
			d := time.Since(start)

			fields := []logx.Field{
				logx.Int64("chat_id", req.Chat.ChatID),
				logx.Int64("from_id", req.FromID),
				logx.String("cmd", req.Command),
				logx.Duration("dur", d),
			}
			if err != nil {
				log.Warn("command failed", append(fields, logx.Err(err))...)
			} else if d >= 750*time.Millisecond {
				log.Info("command ok", fields...)
			} else {
				log.Debug("command ok", fields...)
			}
			return err
		}
	}
}

const defaultCommandTimeout = 15 * time.Second

// Router dispatches inbound updates to command handlers.
type Router struct {
	adapter kit.Adapter
	log     logx.Logger
	state   *ServiceState

	// ownersMu guards owners: SetOwners runs on the config-reload
	// goroutine while dispatch reads concurrently.
	ownersMu sync.RWMutex
	owners   map[int64]struct{}

	commands map[string]*Command
	names    []string // registration order, for /help
}

func NewRouter(adapter kit.Adapter, state *ServiceState, owners []int64, log logx.Logger) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	r := &Router{
		adapter:  adapter,
		log:      log,
		state:    state,
		owners:   map[int64]struct{}{},
		commands: map[string]*Command{},
	}
	for _, id := range owners {
		r.owners[id] = struct{}{}
	}
	return r
}

// SetOwners replaces the owner allow-list (hot reload).
func (r *Router) SetOwners(owners []int64) {
	m := make(map[int64]struct{}, len(owners))
	for _, id := range owners {
		m[id] = struct{}{}
	}
	r.ownersMu.Lock()
	r.owners = m
	r.ownersMu.Unlock()
}

func (r *Router) Register(cmd *Command) {
	if cmd == nil || cmd.Name == "" || cmd.Handle == nil {
		return
	}
	r.commands[cmd.Name] = cmd
	r.names = append(r.names, cmd.Name)
	for _, a := range cmd.Aliases {
		r.commands[a] = cmd
	}
}

// Run consumes updates until ctx is cancelled. Intended to run under the
// app supervisor.
func (r *Router) Run(ctx context.Context, updates <-chan kit.Update) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			r.dispatch(ctx, up)
		}
	}
}

func (r *Router) dispatch(ctx context.Context, up kit.Update) {
	if up.Kind != kit.UpdateMessage || up.Message == nil {
		return
	}
	m := up.Message

	name, args, ok := parseCommand(m.Text)
	if !ok {
		return
	}
	cmd, found := r.commands[name]

	req := &Request{
		Update:  up,
		Chat:    kit.ChatTarget{ChatID: m.ChatID, ThreadID: m.ThreadID},
		FromID:  m.FromID,
		Command: name,
		Args:    args,
		Adapter: r.adapter,
		Logger:  r.log,
	}

	if !found {
		// unknown slash commands in groups are usually meant for other bots
		if !m.IsGroup {
			_ = req.Reply(ctx, "Unknown command. Try /help.")
		}
		return
	}

	outcome := "ok"
	switch {
	case cmd.Access == AccessOwnerOnly && !r.isOwner(m.FromID):
		_ = req.Reply(ctx, "This command is restricted to the bot owner.")
		outcome = "denied"
	case r.state.Suspended() && !cmd.BypassSuspend:
		_ = req.Reply(ctx, "The bot is suspended. An owner can /resume it.")
		outcome = "suspended"
	default:
		timeout := cmd.Timeout
		if timeout <= 0 {
			timeout = defaultCommandTimeout
		}
		h := Chain(cmd.Handle,
			MWPanicRecover(r.log),
			MWRequestLog(r.log),
			MWTimeout(timeout),
		)
		if err := h(ctx, req); err != nil {
			outcome = "error"
			_ = req.Reply(ctx, "Something went wrong, try again later.")
		}
	}
	metrics.CommandsHandled.WithLabelValues(cmd.Name, outcome).Inc()
}

func (r *Router) isOwner(id int64) bool {
	r.ownersMu.RLock()
	defer r.ownersMu.RUnlock()
	_, ok := r.owners[id]
	return ok
}

// parseCommand extracts "/name args..." from a message. The "@BotName"
// suffix Telegram appends in groups is stripped.
func parseCommand(text string) (name string, args []string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", nil, false
	}
	fields := strings.Fields(text)
	name = strings.TrimPrefix(fields[0], "/")
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	name = strings.ToLower(name)
	if name == "" {
		return "", nil, false
	}
	return name, fields[1:], true
}

// HelpText renders the command list, owner commands last.
func (r *Router) HelpText() string {
	var everyone, owner []string
	for _, n := range r.names {
		cmd := r.commands[n]
		line := "/" + cmd.Name
		if cmd.Usage != "" {
			line += " " + cmd.Usage
		}
		if cmd.Description != "" {
			line += " - " + cmd.Description
		}
		if cmd.Access == AccessOwnerOnly {
			owner = append(owner, line)
		} else {
			everyone = append(everyone, line)
		}
	}
	sort.Strings(everyone)
	sort.Strings(owner)

	var b strings.Builder
	b.WriteString("Commands:\n")
	for _, l := range everyone {
		b.WriteString(l + "\n")
	}
	if len(owner) > 0 {
		b.WriteString("\nOwner commands:\n")
		for _, l := range owner {
			b.WriteString(l + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
