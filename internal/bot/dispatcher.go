package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lmercier/modbot/internal/classifier"
	"github.com/lmercier/modbot/internal/models"
	"github.com/lmercier/modbot/internal/policy"
	"github.com/lmercier/modbot/internal/storage"
	"github.com/lmercier/modbot/internal/telemetry"
)

// Actions are the platform side effects the dispatcher can perform. The
// Discord adapter implements them; tests supply mocks.
type Actions interface {
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	SendText(ctx context.Context, channelID, content string) error
	NotifyChannel(ctx context.Context, channelID string, msg *models.Message, report *models.Report) error
	SendReport(ctx context.Context, channelID, roleID string, report *models.Report) error
}

// PermissionChecker answers whether a user may run operator commands in a
// guild. Holding the guild's moderator role or an elevated permission both
// qualify.
type PermissionChecker interface {
	IsModerator(ctx context.Context, guildID, userID string) (bool, error)
}

// Status is the terminal state of a processed message.
type Status string

const (
	StatusAllowed Status = "allowed"
	StatusDeleted Status = "deleted"
	StatusSkipped Status = "skipped"
)

// Outcome describes how a single message finished processing.
type Outcome struct {
	Status   Status
	Decision *policy.Decision
	Report   *models.Report
	FailOpen bool
}

// Dispatcher drives each message through classify, decide and act, and
// executes operator commands against the guild configuration store.
type Dispatcher struct {
	classifier classifier.Classifier
	store      storage.Storage
	actions    Actions
	perms      PermissionChecker
	metrics    *telemetry.Metrics
	logger     *zap.Logger
	prefix     string
	statusLine func() string
}

// SetStatusLine installs an optional bot identity/uptime line appended to
// show_config output.
func (d *Dispatcher) SetStatusLine(fn func() string) {
	d.statusLine = fn
}

func NewDispatcher(clf classifier.Classifier, store storage.Storage, actions Actions, perms PermissionChecker, metrics *telemetry.Metrics, logger *zap.Logger, prefix string) *Dispatcher {
	return &Dispatcher{
		classifier: clf,
		store:      store,
		actions:    actions,
		perms:      perms,
		metrics:    metrics,
		logger:     logger,
		prefix:     prefix,
	}
}

const safeCommand = "say_safe"

func (d *Dispatcher) isSafeCommand(content string) bool {
	rest, ok := strings.CutPrefix(content, d.prefix)
	if !ok {
		return false
	}
	name, _, _ := strings.Cut(rest, " ")
	return name == safeCommand
}

// Process runs one message through the moderation pipeline. Classifier
// failures resolve to allow with a warning; they never escape. A message
// sent through the safe command is skipped without ever being classified.
func (d *Dispatcher) Process(ctx context.Context, msg *models.Message) Outcome {
	if d.isSafeCommand(msg.Content) {
		d.metrics.RecordMessage(string(StatusSkipped))
		return Outcome{Status: StatusSkipped}
	}
	if strings.TrimSpace(msg.Content) == "" {
		d.metrics.RecordMessage(string(StatusAllowed))
		return Outcome{Status: StatusAllowed}
	}

	start := time.Now()
	verdict, err := d.classifier.Classify(ctx, msg.Content)
	latency := time.Since(start)

	if err != nil {
		// Fail open: availability over strictness.
		d.logger.Warn("classification failed, allowing message",
			zap.Error(err),
			zap.String("message_id", msg.ID),
			zap.String("guild_id", msg.GuildID))
		d.metrics.RecordOracleRequest(oracleStatus(err), latency.Seconds())
		d.metrics.RecordMessage(string(StatusAllowed))
		return Outcome{Status: StatusAllowed, FailOpen: true}
	}
	d.metrics.RecordOracleRequest("ok", latency.Seconds())

	decision := policy.Decide(verdict)
	if decision.Action == policy.ActionAllow {
		d.metrics.RecordMessage(string(StatusAllowed))
		return Outcome{Status: StatusAllowed, Decision: &decision}
	}

	report := buildReport(msg, verdict, decision, latency)
	d.deleteAndNotify(ctx, msg, report)

	for _, category := range decision.Triggered {
		d.metrics.RecordTriggered(string(category))
	}
	d.metrics.RecordMessage(string(StatusDeleted))

	return Outcome{Status: StatusDeleted, Decision: &decision, Report: report}
}

func (d *Dispatcher) deleteAndNotify(ctx context.Context, msg *models.Message, report *models.Report) {
	// Deletion is best-effort; the message may already be gone.
	if err := d.actions.DeleteMessage(ctx, msg.ChannelID, msg.ID); err != nil {
		d.logger.Warn("failed to delete flagged message",
			zap.Error(err),
			zap.String("message_id", msg.ID),
			zap.String("channel_id", msg.ChannelID))
	}

	if err := d.actions.NotifyChannel(ctx, msg.ChannelID, msg, report); err != nil {
		d.logger.Error("failed to post deletion notice",
			zap.Error(err),
			zap.String("channel_id", msg.ChannelID))
	}

	cfg, err := d.store.GetGuildConfig(ctx, msg.GuildID)
	if err != nil {
		d.logger.Error("failed to load guild config for report",
			zap.Error(err),
			zap.String("guild_id", msg.GuildID))
		return
	}

	if err := d.actions.SendReport(ctx, cfg.ModChannelID, cfg.ModRoleID, report); err != nil {
		d.logger.Error("failed to send moderation report",
			zap.Error(err),
			zap.String("mod_channel_id", cfg.ModChannelID),
			zap.String("guild_id", msg.GuildID))
		return
	}

	d.logger.Info("message deleted and reported",
		zap.String("message_id", msg.ID),
		zap.String("author_id", msg.AuthorID),
		zap.String("report_id", report.ID),
		zap.Float64("max_score", report.MaxScore))
}

func buildReport(msg *models.Message, verdict models.CategoryVerdict, decision policy.Decision, latency time.Duration) *models.Report {
	violations := make([]models.Violation, 0, len(decision.Triggered))
	for _, category := range decision.Triggered {
		violations = append(violations, models.Violation{
			Category: category,
			Score:    verdict[category].Score,
		})
	}

	return &models.Report{
		ID:         uuid.New().String(),
		Timestamp:  time.Now().UTC(),
		Latency:    latency.Seconds(),
		Author:     msg.Author,
		AuthorID:   msg.AuthorID,
		Content:    msg.Content,
		MessageID:  msg.ID,
		Violations: violations,
		MaxScore:   decision.MaxScore,
	}
}

func oracleStatus(err error) string {
	switch {
	case errors.Is(err, classifier.ErrTimeout):
		return "timeout"
	case errors.Is(err, classifier.ErrMalformedResponse):
		return "malformed"
	default:
		return "unavailable"
	}
}

// Command is a parsed operator command.
type Command struct {
	Name string
	Arg  string
	Msg  *models.Message
}

// ParseCommand extracts a command from message content, or reports that the
// content is not a command at all.
func (d *Dispatcher) ParseCommand(msg *models.Message) (*Command, bool) {
	rest, ok := strings.CutPrefix(msg.Content, d.prefix)
	if !ok || rest == "" {
		return nil, false
	}
	name, arg, _ := strings.Cut(rest, " ")
	return &Command{Name: name, Arg: strings.TrimSpace(arg), Msg: msg}, true
}

// HandleCommand executes an operator command. Every command is role-gated;
// a denied caller gets a reply and the config stays untouched.
func (d *Dispatcher) HandleCommand(ctx context.Context, cmd *Command) {
	msg := cmd.Msg

	allowed, err := d.perms.IsModerator(ctx, msg.GuildID, msg.AuthorID)
	if err != nil {
		d.logger.Error("failed to check permissions",
			zap.Error(err),
			zap.String("guild_id", msg.GuildID),
			zap.String("user_id", msg.AuthorID))
		d.reply(ctx, msg.ChannelID, "Something went wrong while checking your permissions.")
		d.metrics.RecordCommand(cmd.Name, "error")
		return
	}
	if !allowed {
		d.reply(ctx, msg.ChannelID, "You need the moderator role to use this command.")
		d.metrics.RecordCommand(cmd.Name, "denied")
		return
	}

	switch cmd.Name {
	case "set_mod_role":
		d.handleSetModRole(ctx, cmd)
	case "set_mod_channel":
		d.handleSetModChannel(ctx, cmd)
	case "show_config":
		d.handleShowConfig(ctx, cmd)
	case safeCommand:
		d.handleSaySafe(ctx, cmd)
	default:
		d.reply(ctx, msg.ChannelID, fmt.Sprintf("Unknown command %q.", d.prefix+cmd.Name))
		d.metrics.RecordCommand(cmd.Name, "unknown")
	}
}

func (d *Dispatcher) handleSetModRole(ctx context.Context, cmd *Command) {
	msg := cmd.Msg
	roleID := parseRoleID(cmd.Arg)
	if roleID == "" {
		d.reply(ctx, msg.ChannelID, "Usage: "+d.prefix+"set_mod_role <role>")
		d.metrics.RecordCommand(cmd.Name, "invalid")
		return
	}

	if err := d.store.SetModRole(ctx, msg.GuildID, roleID); err != nil {
		d.logger.Error("failed to set mod role",
			zap.Error(err),
			zap.String("guild_id", msg.GuildID),
			zap.String("role_id", roleID))
		d.reply(ctx, msg.ChannelID, "Sorry, I couldn't save the moderator role. Please try again.")
		d.metrics.RecordCommand(cmd.Name, "error")
		return
	}

	d.reply(ctx, msg.ChannelID, fmt.Sprintf("Moderator role set to <@&%s>.", roleID))
	d.metrics.RecordCommand(cmd.Name, "ok")
}

func (d *Dispatcher) handleSetModChannel(ctx context.Context, cmd *Command) {
	msg := cmd.Msg
	channelID := parseChannelID(cmd.Arg)
	if channelID == "" {
		d.reply(ctx, msg.ChannelID, "Usage: "+d.prefix+"set_mod_channel <channel>")
		d.metrics.RecordCommand(cmd.Name, "invalid")
		return
	}

	if err := d.store.SetModChannel(ctx, msg.GuildID, channelID); err != nil {
		d.logger.Error("failed to set mod channel",
			zap.Error(err),
			zap.String("guild_id", msg.GuildID),
			zap.String("channel_id", channelID))
		d.reply(ctx, msg.ChannelID, "Sorry, I couldn't save the moderation channel. Please try again.")
		d.metrics.RecordCommand(cmd.Name, "error")
		return
	}

	d.reply(ctx, msg.ChannelID, fmt.Sprintf("Moderation channel set to <#%s>.", channelID))
	d.metrics.RecordCommand(cmd.Name, "ok")
}

func (d *Dispatcher) handleShowConfig(ctx context.Context, cmd *Command) {
	msg := cmd.Msg
	cfg, err := d.store.GetGuildConfig(ctx, msg.GuildID)
	if err != nil {
		d.logger.Error("failed to load guild config",
			zap.Error(err),
			zap.String("guild_id", msg.GuildID))
		d.reply(ctx, msg.ChannelID, "Sorry, I couldn't load this server's configuration.")
		d.metrics.RecordCommand(cmd.Name, "error")
		return
	}

	text := formatConfig(cfg)
	if d.statusLine != nil {
		text += "\n" + d.statusLine()
	}
	d.reply(ctx, msg.ChannelID, text)
	d.metrics.RecordCommand(cmd.Name, "ok")
}

func (d *Dispatcher) handleSaySafe(ctx context.Context, cmd *Command) {
	msg := cmd.Msg
	if cmd.Arg == "" {
		d.reply(ctx, msg.ChannelID, "Usage: "+d.prefix+safeCommand+" <message>")
		d.metrics.RecordCommand(cmd.Name, "invalid")
		return
	}

	// Escape hatch: posted verbatim, never classified.
	if err := d.actions.SendText(ctx, msg.ChannelID, cmd.Arg); err != nil {
		d.logger.Error("failed to post unmoderated message",
			zap.Error(err),
			zap.String("channel_id", msg.ChannelID))
		d.metrics.RecordCommand(cmd.Name, "error")
		return
	}
	d.metrics.RecordCommand(cmd.Name, "ok")
}

func (d *Dispatcher) reply(ctx context.Context, channelID, text string) {
	if err := d.actions.SendText(ctx, channelID, text); err != nil {
		d.logger.Error("failed to send reply",
			zap.Error(err),
			zap.String("channel_id", channelID))
	}
}

func formatConfig(cfg *models.GuildConfig) string {
	role := "not configured"
	if cfg.ModRoleID != "" {
		role = "<@&" + cfg.ModRoleID + ">"
	}
	channel := "not configured"
	if cfg.ModChannelID != "" {
		channel = "<#" + cfg.ModChannelID + ">"
	}
	return fmt.Sprintf("**Server configuration**\nModerator role: %s\nModeration channel: %s", role, channel)
}

// parseRoleID accepts a raw snowflake or a role mention like <@&123>.
func parseRoleID(arg string) string {
	if id, ok := strings.CutPrefix(arg, "<@&"); ok {
		id = strings.TrimSuffix(id, ">")
		if isSnowflake(id) {
			return id
		}
		return ""
	}
	if isSnowflake(arg) {
		return arg
	}
	return ""
}

// parseChannelID accepts a raw snowflake or a channel mention like <#123>.
func parseChannelID(arg string) string {
	if id, ok := strings.CutPrefix(arg, "<#"); ok {
		id = strings.TrimSuffix(id, ">")
		if isSnowflake(id) {
			return id
		}
		return ""
	}
	if isSnowflake(arg) {
		return arg
	}
	return ""
}

func isSnowflake(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
