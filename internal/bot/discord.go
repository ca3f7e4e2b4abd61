package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/lmercier/modbot/internal/classifier"
	"github.com/lmercier/modbot/internal/models"
	"github.com/lmercier/modbot/internal/storage"
	"github.com/lmercier/modbot/internal/telemetry"
)

// Bot connects the dispatcher to the Discord gateway. It implements the
// Actions and PermissionChecker interfaces on top of a discordgo session.
type Bot struct {
	session    *discordgo.Session
	dispatcher *Dispatcher
	store      storage.Storage
	logger     *zap.Logger
	name       string
	version    string
	startedAt  time.Time
}

func New(token, prefix, name, version string, store storage.Storage, clf classifier.Classifier, metrics *telemetry.Metrics, logger *zap.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentMessageContent

	b := &Bot{
		session: session,
		store:   store,
		logger:  logger,
		name:    name,
		version: version,
	}
	b.dispatcher = NewDispatcher(clf, store, b, b, metrics, logger, prefix)
	b.dispatcher.SetStatusLine(func() string {
		return fmt.Sprintf("%s v%s (uptime %s)", b.name, b.version, b.Uptime())
	})

	session.AddHandler(b.onReady)
	session.AddHandler(b.onMessageCreate)

	return b, nil
}

func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord gateway: %w", err)
	}
	return nil
}

func (b *Bot) Stop() error {
	return b.session.Close()
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.startedAt = time.Now()
	b.logger.Info("logged in",
		zap.String("username", r.User.Username),
		zap.String("bot_name", b.name),
		zap.String("bot_version", b.version),
		zap.Int("guilds", len(r.Guilds)))
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == s.State.User.ID || m.Author.Bot {
		return
	}
	if m.GuildID == "" {
		// Direct messages are not moderated.
		return
	}

	msg := &models.Message{
		ID:        m.ID,
		AuthorID:  m.Author.ID,
		Author:    m.Author.Username,
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		Content:   m.Content,
		Timestamp: m.Timestamp,
	}

	ctx := context.Background()

	outcome := b.dispatcher.Process(ctx, msg)
	if outcome.Status == StatusDeleted {
		return
	}

	if cmd, ok := b.dispatcher.ParseCommand(msg); ok {
		b.dispatcher.HandleCommand(ctx, cmd)
	}
}

// DeleteMessage implements Actions.
func (b *Bot) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return b.session.ChannelMessageDelete(channelID, messageID)
}

// SendText implements Actions.
func (b *Bot) SendText(ctx context.Context, channelID, content string) error {
	_, err := b.session.ChannelMessageSend(channelID, content)
	return err
}

// NotifyChannel implements Actions. It posts an embed in the original
// channel telling the author their message was removed.
func (b *Bot) NotifyChannel(ctx context.Context, channelID string, msg *models.Message, report *models.Report) error {
	lines := make([]string, 0, len(report.Violations))
	for _, v := range report.Violations {
		label := models.CategoryDescriptions[v.Category]
		if label == "" {
			label = string(v.Category)
		}
		lines = append(lines, fmt.Sprintf("%s: %.1f%%", label, v.Score*100))
	}

	embed := &discordgo.MessageEmbed{
		Title: "🚨 Auto-moderation",
		Description: fmt.Sprintf(
			"<@%s>, your message was removed and reported to the moderators because it "+
				"was judged offensive by the auto-moderation system. If you believe this "+
				"is a mistake, contact a moderator and give them the report ID below.",
			msg.AuthorID),
		Color: 0xE74C3C,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Categories", Value: strings.Join(lines, "\n")},
			{Name: "Report ID", Value: report.ID},
		},
	}

	_, err := b.session.ChannelMessageSendEmbed(channelID, embed)
	return err
}

// SendReport implements Actions. The report goes to the guild's moderation
// channel as a JSON block behind a role mention.
func (b *Bot) SendReport(ctx context.Context, channelID, roleID string, report *models.Report) error {
	if channelID == "" {
		return fmt.Errorf("no moderation channel configured")
	}

	data, err := json.MarshalIndent(report, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	content := fmt.Sprintf("<@&%s>\n```json\n%s\n```", roleID, data)
	_, err = b.session.ChannelMessageSend(channelID, content)
	return err
}

// IsModerator implements PermissionChecker. A user qualifies by holding the
// guild's configured moderator role, an administrator role, or by owning
// the guild.
func (b *Bot) IsModerator(ctx context.Context, guildID, userID string) (bool, error) {
	guild, err := b.session.State.Guild(guildID)
	if err != nil {
		guild, err = b.session.Guild(guildID)
		if err != nil {
			return false, fmt.Errorf("failed to fetch guild: %w", err)
		}
	}
	if guild.OwnerID == userID {
		return true, nil
	}

	member, err := b.session.State.Member(guildID, userID)
	if err != nil {
		member, err = b.session.GuildMember(guildID, userID)
		if err != nil {
			return false, fmt.Errorf("failed to fetch member: %w", err)
		}
	}

	cfg, err := b.store.GetGuildConfig(ctx, guildID)
	if err != nil {
		return false, fmt.Errorf("failed to load guild config: %w", err)
	}

	adminRoles := make(map[string]bool)
	for _, role := range guild.Roles {
		if role.Permissions&discordgo.PermissionAdministrator != 0 {
			adminRoles[role.ID] = true
		}
	}

	for _, roleID := range member.Roles {
		if roleID == cfg.ModRoleID || adminRoles[roleID] {
			return true, nil
		}
	}
	return false, nil
}

// Uptime reports how long the bot has been connected.
func (b *Bot) Uptime() string {
	if b.startedAt.IsZero() {
		return "not connected yet"
	}
	return time.Since(b.startedAt).Round(time.Second).String()
}
