package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lolwatch/internal/notifier"
	"lolwatch/internal/riot"
	"lolwatch/internal/sweeper"
	"lolwatch/internal/tracker"
	logx "lolwatch/pkg/logx"
)

// PresenceProber is the live "in game right now" lookup.
type PresenceProber interface {
	IsActive(ctx context.Context, userID string) (bool, error)
}

// AccountResolver verifies that a Riot ID maps to a real account.
type AccountResolver interface {
	ResolvePUUID(ctx context.Context, riotID string) (string, error)
}

// Deps wires the command handlers to the rest of the app.
type Deps struct {
	Store    tracker.Store
	Prober   PresenceProber
	Resolver AccountResolver
	Notifier *notifier.Service
	Sweeper  *sweeper.Service
	State    *ServiceState
	Log      logx.Logger

	StartedAt   time.Time
	StoreDriver string
}

// RegisterCommands installs every command on the router.
func RegisterCommands(r *Router, d Deps) {
	r.Register(cmdRegister(d))
	r.Register(cmdCheck(d))
	r.Register(cmdStatus(d))
	r.Register(cmdHelp(r))
	r.Register(cmdSuspend(d))
	r.Register(cmdResume(d))
}

func cmdRegister(d Deps) *Command {
	return &Command{
		Name:        "register",
		Description: "track a player's League activity",
		Usage:       "<Name#TAG>",
		Handle: func(ctx context.Context, req *Request) error {
			riotID := strings.TrimSpace(strings.Join(req.Args, " "))
			if riotID == "" {
				return req.Reply(ctx, "Usage: /register Name#TAG")
			}
			if _, _, err := riot.SplitRiotID(riotID); err != nil {
				return req.Reply(ctx, "That doesn't look like a Riot ID. Use the Name#TAG form.")
			}

			// confirm the account exists before tracking it
			if _, err := d.Resolver.ResolvePUUID(ctx, riotID); err != nil {
				if errors.Is(err, riot.ErrNotFound) {
					return req.Reply(ctx, fmt.Sprintf("No Riot account found for %s.", riotID))
				}
				return err
			}

			res, err := d.Store.Register(ctx, riotID)
			if err != nil {
				return err
			}
			if res == tracker.AlreadyExists {
				return req.Reply(ctx, fmt.Sprintf("%s is already being tracked.", riotID))
			}
			return req.Reply(ctx, fmt.Sprintf("Now tracking %s. I'll nag when they stop playing.", riotID))
		},
	}
}

func cmdCheck(d Deps) *Command {
	return &Command{
		Name:        "check",
		Aliases:     []string{"elapsed"},
		Description: "time since a player's last game",
		Usage:       "<Name#TAG>",
		Handle: func(ctx context.Context, req *Request) error {
			riotID := strings.TrimSpace(strings.Join(req.Args, " "))
			if riotID == "" {
				return req.Reply(ctx, "Usage: /check Name#TAG")
			}

			rec, found, err := d.Store.Get(ctx, riotID)
			if err != nil {
				return err
			}
			if !found {
				return req.Reply(ctx, fmt.Sprintf("%s is not tracked. Use /register first.", riotID))
			}

			// live lookup; a probe failure degrades to the stored record
			active, err := d.Prober.IsActive(ctx, riotID)
			if err != nil {
				d.Log.Debug("live probe failed", logx.String("user_id", riotID), logx.Err(err))
				active = false
			}

			res := tracker.ElapsedSince(rec, found, time.Now().UTC(), active)
			switch res.Kind {
			case tracker.CurrentlyActive:
				return req.Reply(ctx, fmt.Sprintf("%s is in a game right now.", riotID))
			case tracker.NeverObserved:
				return req.Reply(ctx, fmt.Sprintf("%s hasn't been seen playing yet.", riotID))
			default:
				return req.Reply(ctx, fmt.Sprintf("%s last started a game %s ago.", riotID, res))
			}
		},
	}
}

func cmdStatus(d Deps) *Command {
	return &Command{
		Name:          "status",
		Description:   "bot status and tracked players",
		BypassSuspend: true,
		Handle: func(ctx context.Context, req *Request) error {
			recs, err := d.Store.All(ctx)
			if err != nil {
				return err
			}

			var b strings.Builder
			fmt.Fprintf(&b, "State: %s\n", d.State)
			fmt.Fprintf(&b, "Uptime: %s\n", time.Since(d.StartedAt).Round(time.Second))
			fmt.Fprintf(&b, "Store: %s\n", d.StoreDriver)
			fmt.Fprintf(&b, "Tracked players: %d\n", len(recs))

			if d.Sweeper != nil {
				snap := d.Sweeper.Snapshot()
				if snap.Enabled {
					fmt.Fprintf(&b, "Sweep: %s, threshold %s\n", snap.Schedule, snap.Threshold)
				} else {
					fmt.Fprintf(&b, "Sweep: disabled\n")
				}
				if !snap.LastSweep.IsZero() {
					fmt.Fprintf(&b, "Last sweep: %s (%d scanned, %d sent)\n",
						snap.LastSweep.Format("01-02 15:04"), snap.LastStats.Scanned, snap.LastStats.Sent)
				}
			}

			if hist := d.Notifier.History(); len(hist) > 0 {
				fmt.Fprintf(&b, "\nRecent notifications:\n")
				start := len(hist) - 5
				if start < 0 {
					start = 0
				}
				for _, h := range hist[start:] {
					mark := "✓"
					if !h.OK {
						mark = "✗"
					}
					fmt.Fprintf(&b, "%s %s %s\n", mark, h.At.Format("01-02 15:04"), h.UserID)
				}
			}
			return req.Reply(ctx, strings.TrimRight(b.String(), "\n"))
		},
	}
}

func cmdHelp(r *Router) *Command {
	return &Command{
		Name:          "help",
		Aliases:       []string{"start"},
		Description:   "show this help",
		BypassSuspend: true,
		Handle: func(ctx context.Context, req *Request) error {
			return req.Reply(ctx, r.HelpText())
		},
	}
}

func cmdSuspend(d Deps) *Command {
	return &Command{
		Name:          "suspend",
		Description:   "stop handling player commands",
		Access:        AccessOwnerOnly,
		BypassSuspend: true,
		Handle: func(ctx context.Context, req *Request) error {
			if d.State.Suspended() {
				return req.Reply(ctx, "Already suspended.")
			}
			d.State.Suspend()
			d.Log.Info("bot suspended", logx.Int64("by", req.FromID))
			return req.Reply(ctx, "Suspended. Player commands are disabled; tracking continues.")
		},
	}
}

func cmdResume(d Deps) *Command {
	return &Command{
		Name:          "resume",
		Description:   "resume handling player commands",
		Access:        AccessOwnerOnly,
		BypassSuspend: true,
		Handle: func(ctx context.Context, req *Request) error {
			if !d.State.Suspended() {
				return req.Reply(ctx, "Already active.")
			}
			d.State.Resume()
			d.Log.Info("bot resumed", logx.Int64("by", req.FromID))
			return req.Reply(ctx, "Resumed.")
		},
	}
}
