package reservation

import (
	"log/slog"
	"strings"
	"time"
)

// Channel is the canonical source a reservation was created from. The hold
// TTL is configured per channel: chat-driven holds are short-lived, deliberate
// checkout flows get longer ones.
type Channel string

const (
	ChannelWebsite  Channel = "website"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelAdmin    Channel = "admin"
	ChannelAPI      Channel = "api"
)

// NormalizeChannel maps a caller-provided source string to a canonical
// channel. Unrecognized sources default to the most restrictive channel
// (whatsapp, shortest TTL) so a misconfigured caller cannot obtain long holds.
func NormalizeChannel(source string) Channel {
	switch strings.ToLower(strings.TrimSpace(source)) {
	case "website", "web", "store":
		return ChannelWebsite
	case "whatsapp", "wa", "chat":
		return ChannelWhatsApp
	case "admin", "backoffice":
		return ChannelAdmin
	case "api":
		return ChannelAPI
	default:
		slog.Debug("Unrecognized reservation source, defaulting to most restrictive channel",
			"source", source,
			"channel", ChannelWhatsApp)
		return ChannelWhatsApp
	}
}

// TTLTable holds the per-channel hold lifetime. A reservation's expires_at is
// set once at creation from this table and never extended.
type TTLTable struct {
	ttls map[Channel]time.Duration
}

// Default hold TTLs, used when configuration does not override them.
const (
	DefaultWhatsAppTTL = 10 * time.Minute
	DefaultWebsiteTTL  = 30 * time.Minute
	DefaultAdminTTL    = 60 * time.Minute
	DefaultAPITTL      = 15 * time.Minute
)

// NewTTLTable builds the per-channel TTL table. Non-positive durations fall
// back to the channel default.
func NewTTLTable(whatsapp, website, admin, api time.Duration) *TTLTable {
	pick := func(configured, fallback time.Duration, channel Channel) time.Duration {
		if configured <= 0 {
			slog.Warn("Invalid hold TTL, using default",
				"channel", string(channel),
				"configured", configured.String(),
				"default", fallback.String())
			return fallback
		}
		return configured
	}

	return &TTLTable{
		ttls: map[Channel]time.Duration{
			ChannelWhatsApp: pick(whatsapp, DefaultWhatsAppTTL, ChannelWhatsApp),
			ChannelWebsite:  pick(website, DefaultWebsiteTTL, ChannelWebsite),
			ChannelAdmin:    pick(admin, DefaultAdminTTL, ChannelAdmin),
			ChannelAPI:      pick(api, DefaultAPITTL, ChannelAPI),
		},
	}
}

// DefaultTTLTable returns the table with every channel on its default.
func DefaultTTLTable() *TTLTable {
	return NewTTLTable(DefaultWhatsAppTTL, DefaultWebsiteTTL, DefaultAdminTTL, DefaultAPITTL)
}

// For returns the hold TTL for a channel. Unknown channels get the whatsapp
// TTL, matching the normalization fallback.
func (t *TTLTable) For(channel Channel) time.Duration {
	if ttl, ok := t.ttls[channel]; ok {
		return ttl
	}
	return t.ttls[ChannelWhatsApp]
}
