package alerts

import (
	"log"

	"github.com/bwmarrin/discordgo"
	"github.com/rlezama/flotilla/internal/models"
)

// session abstracts the discordgo.Session methods we use, enabling test mocks.
type session interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord posts block alerts to one Discord channel.
type Discord struct {
	sess      session
	channelID string
}

// DiscordOpts holds parameters for creating a Discord sender.
type DiscordOpts struct {
	BotToken  string
	ChannelID string
	// For testing: inject a mock session instead of a real gateway session.
	Session session
}

// NewDiscord creates a Discord sender.
func NewDiscord(opts DiscordOpts) (*Discord, error) {
	sess := opts.Session
	if sess == nil {
		s, err := discordgo.New("Bot " + opts.BotToken)
		if err != nil {
			return nil, err
		}
		sess = s
	}
	return &Discord{sess: sess, channelID: opts.ChannelID}, nil
}

// UnitBlocked posts the block alert. Failures are logged and swallowed.
func (d *Discord) UnitBlocked(unit *models.Unit) {
	if _, err := d.sess.ChannelMessageSend(d.channelID, FormatUnitBlocked(unit)); err != nil {
		log.Printf("alerts: discord post for unit %s: %v", unit.NumeroEconomico, err)
	}
}
