package router

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"runtime/debug"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"homeworkbot/internal/runtime/supervisor"
	kit "homeworkbot/internal/transport"
	logx "homeworkbot/pkg/logx"
)

type Access int

const (
	AccessEveryone Access = iota
	AccessOwnerOnly
)

const (
	defaultWorkers  = 2
	defaultQueueCap = 64
)

type Command struct {
	// Name is the single-token command, e.g. "check".
	Name        string
	Aliases     []string
	Description string
	Access      Access
	Timeout     time.Duration // optional per-command override
	Handle      HandlerFunc
}

type Request struct {
	Update  kit.Update
	Chat    kit.ChatTarget
	FromID  int64
	Command string
	Args    []string
	ReqID   string
	Logger  logx.Logger

	sender kit.Sender
}

// Reply sends text back to the chat (and forum thread) the request came from.
func (r *Request) Reply(ctx context.Context, text string) error {
	if r.sender == nil {
		return nil
	}
	_, err := r.sender.SendText(ctx, r.Chat, text, &kit.SendOptions{DisablePreview: true})
	return err
}

type CommandManager struct {
	mu    sync.RWMutex
	cmds  map[string]Command // name and alias -> command
	menu  []Command
	owner []int64

	log    logx.Logger
	sender kit.Sender

	workers int
	jobs    chan func()
}

func NewCommandManager(log logx.Logger, sender kit.Sender, owners []int64) *CommandManager {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &CommandManager{
		cmds:    map[string]Command{},
		owner:   append([]int64(nil), owners...),
		log:     log,
		sender:  sender,
		workers: defaultWorkers,
		jobs:    make(chan func(), defaultQueueCap),
	}
}

// SetOwners updates the owner list used for AccessOwnerOnly checks.
// Safe to call during hot-reload.
func (m *CommandManager) SetOwners(owners []int64) {
	cp := append([]int64(nil), owners...)
	m.mu.Lock()
	m.owner = cp
	m.mu.Unlock()
}

func (m *CommandManager) ownersSnapshot() []int64 {
	m.mu.RLock()
	cp := append([]int64(nil), m.owner...)
	m.mu.RUnlock()
	return cp
}

// SetRegistry replaces the command set. /help is always added.
func (m *CommandManager) SetRegistry(cmds []Command) {
	helper := Command{
		Name:        "help",
		Aliases:     []string{"start"},
		Description: "show available commands",
		Access:      AccessEveryone,
		Handle: func(ctx context.Context, req *Request) error {
			return req.Reply(ctx, m.helpText())
		},
	}
	cmds = append(cmds, helper)

	table := map[string]Command{}
	menu := make([]Command, 0, len(cmds))
	for _, c := range cmds {
		name := sanitizeTelegramCommand(c.Name)
		if name == "" || c.Handle == nil {
			continue
		}
		c.Name = name
		table[name] = c
		menu = append(menu, c)
		for _, a := range c.Aliases {
			if sa := sanitizeTelegramCommand(a); sa != "" {
				if _, exists := table[sa]; !exists {
					table[sa] = c
				}
			}
		}
	}
	sort.Slice(menu, func(i, j int) bool { return menu[i].Name < menu[j].Name })

	m.mu.Lock()
	m.cmds = table
	m.menu = menu
	m.mu.Unlock()
}

// UpdateMenu pushes the public commands to the platform menu, if the sender
// supports it.
func (m *CommandManager) UpdateMenu(ctx context.Context) error {
	up, ok := m.sender.(kit.CommandMenuUpdater)
	if !ok {
		return nil
	}
	m.mu.RLock()
	menu := buildTelegramMenuCommands(m.menu)
	m.mu.RUnlock()

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return up.UpdateMenuCommands(cctx, menu)
}

func (m *CommandManager) helpText() string {
	m.mu.RLock()
	menu := append([]Command(nil), m.menu...)
	m.mu.RUnlock()

	var b strings.Builder
	b.WriteString("commands:\n")
	for _, c := range menu {
		b.WriteString("/" + c.Name)
		if c.Description != "" {
			b.WriteString(" - " + c.Description)
		}
		if c.Access == AccessOwnerOnly {
			b.WriteString(" (owner)")
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// DispatchLoop routes updates to a bounded worker pool until ctx ends or
// updates is closed.
func (m *CommandManager) DispatchLoop(ctx context.Context, updates <-chan kit.Update) error {
	sup := supervisor.New(ctx,
		supervisor.WithLogger(m.log.With(logx.String("comp", "telegram.router"))),
		supervisor.WithCancelOnError(false),
	)
	m.log.Info("command dispatcher started", logx.Int("workers", m.workers), logx.Int("job_queue_cap", cap(m.jobs)))

	jobs := m.jobs
	for i := 0; i < m.workers; i++ {
		idx := i
		sup.GoRestart("command.worker."+strconv.Itoa(idx), func(c context.Context) error {
			for {
				select {
				case <-c.Done():
					return nil
				case job := <-jobs:
					m.runJob(idx, job)
				}
			}
		},
			supervisor.WithRestartBackoff(200*time.Millisecond, 5*time.Second),
			supervisor.WithStopOnCleanExit(true),
		)
	}

	defer func() {
		sup.Cancel()
		wctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		_ = sup.Wait(wctx)
		cancel()
		m.log.Info("command dispatcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			if up.Kind == kit.UpdateMessage {
				m.routeMessage(ctx, up)
			}
		}
	}
}

func (m *CommandManager) runJob(worker int, job func()) {
	if job == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("panic in command job", logx.Int("worker", worker), logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
		}
	}()
	job()
}

func (m *CommandManager) routeMessage(root context.Context, up kit.Update) {
	msg := up.Message
	if msg == nil {
		return
	}
	word, args, ok := parseCommand(msg.Text)
	if !ok {
		return
	}
	chat := kit.ChatTarget{ChatID: msg.ChatID, ThreadID: msg.ThreadID}

	m.mu.RLock()
	cmd, found := m.cmds[word]
	m.mu.RUnlock()
	if !found {
		m.reply(root, chat, "unknown command, try /help")
		return
	}
	if cmd.Access == AccessOwnerOnly && !isOwner(msg.FromID, m.ownersSnapshot()) {
		m.reply(root, chat, "unauthorized")
		return
	}

	rid := newReqID()
	req := &Request{
		Update:  up,
		Chat:    chat,
		FromID:  msg.FromID,
		Command: cmd.Name,
		Args:    args,
		ReqID:   rid,
		Logger: m.log.With(
			logx.String("rid", rid),
			logx.Int64("chat_id", msg.ChatID),
			logx.Int64("from_id", msg.FromID),
			logx.String("cmd", cmd.Name),
		),
		sender: m.sender,
	}
	final := Chain(
		cmd.Handle,
		MWPanicRecover(m.log),
		MWRequestLog(m.log),
		MWTimeout(cmd.Timeout),
	)

	select {
	case m.jobs <- func() { _ = final(root, req) }:
	default:
		m.reply(root, chat, "busy, try again")
	}
}

func (m *CommandManager) reply(ctx context.Context, to kit.ChatTarget, text string) {
	if m.sender == nil {
		return
	}
	if _, err := m.sender.SendText(ctx, to, text, nil); err != nil {
		m.log.Warn("router reply failed", logx.Int64("chat_id", to.ChatID), logx.Err(err))
	}
}

// parseCommand splits "/cmd@bot a b" into ("cmd", ["a", "b"]).
func parseCommand(text string) (string, []string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", nil, false
	}
	parts := strings.Fields(text)
	word := strings.TrimPrefix(parts[0], "/")
	if i := strings.IndexByte(word, '@'); i >= 0 {
		word = word[:i]
	}
	word = strings.ToLower(word)
	if word == "" {
		return "", nil, false
	}
	return word, parts[1:], true
}

func isOwner(id int64, owners []int64) bool {
	for _, o := range owners {
		if o == id {
			return true
		}
	}
	return false
}

func newReqID() string {
	var b [6]byte
	if _, err := rand.Read(b[:]); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return hex.EncodeToString(b[:])
}
