package reservation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeChannel(t *testing.T) {
	cases := map[string]Channel{
		"website":    ChannelWebsite,
		"WEB":        ChannelWebsite,
		"store":      ChannelWebsite,
		"whatsapp":   ChannelWhatsApp,
		"wa":         ChannelWhatsApp,
		"chat":       ChannelWhatsApp,
		"admin":      ChannelAdmin,
		"backoffice": ChannelAdmin,
		"api":        ChannelAPI,
		" Website ":  ChannelWebsite,
	}
	for source, want := range cases {
		assert.Equal(t, want, NormalizeChannel(source), source)
	}
}

func TestNormalizeChannelDefaultsToMostRestrictive(t *testing.T) {
	assert.Equal(t, ChannelWhatsApp, NormalizeChannel(""))
	assert.Equal(t, ChannelWhatsApp, NormalizeChannel("carrier-pigeon"))
}

func TestTTLTableFallsBackOnInvalidDurations(t *testing.T) {
	table := NewTTLTable(-time.Minute, 0, 45*time.Minute, 20*time.Minute)

	assert.Equal(t, DefaultWhatsAppTTL, table.For(ChannelWhatsApp))
	assert.Equal(t, DefaultWebsiteTTL, table.For(ChannelWebsite))
	assert.Equal(t, 45*time.Minute, table.For(ChannelAdmin))
	assert.Equal(t, 20*time.Minute, table.For(ChannelAPI))
}

func TestTTLTableUnknownChannelGetsWhatsAppTTL(t *testing.T) {
	table := DefaultTTLTable()
	assert.Equal(t, DefaultWhatsAppTTL, table.For(Channel("telegram")))
}
