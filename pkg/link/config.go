package link

import (
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/radio.go/pkg/flash"
)

const (
	// MaxChannel is the highest radio channel.
	MaxChannel uint32 = 25
	// DefaultChannel is the factory channel.
	DefaultChannel uint32 = 25
	// MaxPollTime is the longest poll time in ms, limited by the one
	// byte literal of the handshake.
	MaxPollTime uint32 = 255

	// ConfigAddr is the default flash location of the settings.
	ConfigAddr uint32 = 0
)

// Settings are the persisted radio parameters.
type Settings struct {
	Channel  uint32
	PollTime uint32 // ms
}

// PollInterval converts PollTime to a duration.
func (s Settings) PollInterval() time.Duration {
	return time.Duration(s.PollTime) * time.Millisecond
}

// DefaultSettings returns the factory settings.
func DefaultSettings() Settings {
	return Settings{
		Channel:  DefaultChannel,
		PollTime: uint32(DefaultPollTime / time.Millisecond),
	}
}

// ValidateChannel checks ch is within the radio limits.
func ValidateChannel(ch uint32) error {
	if ch > MaxChannel {
		return fmt.Errorf("channel %d: %w", ch, ErrChannelRange)
	}
	return nil
}

// ValidatePollTime checks ms fits the handshake literal.
func ValidatePollTime(ms uint32) error {
	if ms == 0 || ms > MaxPollTime {
		return fmt.Errorf("poll time %d: %w", ms, ErrPollTimeRange)
	}
	return nil
}

// ConfigStore persists Settings as two words sharing one erase unit:
// the channel at Addr and the poll time at Addr+4.
type ConfigStore struct {
	Storage  flash.Storage
	Addr     uint32
	Defaults Settings

	current Settings
}

// NewConfigStore creates a ConfigStore at the default location.
func NewConfigStore(storage flash.Storage) *ConfigStore {
	return &ConfigStore{Storage: storage, Addr: ConfigAddr, Defaults: DefaultSettings()}
}

func (c *ConfigStore) channelAddr() uint32  { return c.Addr }
func (c *ConfigStore) pollTimeAddr() uint32 { return c.Addr + 4 }

// Load reads persisted settings, writing defaults for unset or
// invalid words.
func (c *ConfigStore) Load() (Settings, error) {
	s := Settings{
		Channel:  c.Storage.ReadWord(c.channelAddr()),
		PollTime: c.Storage.ReadWord(c.pollTimeAddr()),
	}
	var err error
	if s.Channel == flash.Erased || ValidateChannel(s.Channel) != nil {
		glog.Infof("channel unset (0x%08x), using default %d", s.Channel, c.Defaults.Channel)
		err = c.write(c.channelAddr(), c.Defaults.Channel)
		s.Channel = c.Defaults.Channel
	}
	if err == nil && (s.PollTime == flash.Erased || ValidatePollTime(s.PollTime) != nil) {
		glog.Infof("poll time unset (0x%08x), using default %d", s.PollTime, c.Defaults.PollTime)
		err = c.write(c.pollTimeAddr(), c.Defaults.PollTime)
		s.PollTime = c.Defaults.PollTime
	}
	c.current = s
	return s, err
}

// Current returns the settings in effect.
func (c *ConfigStore) Current() Settings {
	return c.current
}

// SetChannel validates and persists the channel.
func (c *ConfigStore) SetChannel(ch uint32) error {
	if err := ValidateChannel(ch); err != nil {
		return err
	}
	if err := c.write(c.channelAddr(), ch); err != nil {
		return err
	}
	c.current.Channel = ch
	return nil
}

// SetPollTime validates and persists the poll time.
func (c *ConfigStore) SetPollTime(ms uint32) error {
	if err := ValidatePollTime(ms); err != nil {
		return err
	}
	if err := c.write(c.pollTimeAddr(), ms); err != nil {
		return err
	}
	c.current.PollTime = ms
	return nil
}

// write erases the shared page, restores the sibling word if it was
// set and writes the target word.
func (c *ConfigStore) write(addr, val uint32) error {
	sibling := c.channelAddr()
	if addr == sibling {
		sibling = c.pollTimeAddr()
	}
	keep := c.Storage.ReadWord(sibling)
	if err := c.Storage.EraseRegion(c.Addr); err != nil {
		return fmt.Errorf("erase config: %w", err)
	}
	if keep != flash.Erased {
		if err := c.Storage.WriteWord(sibling, keep); err != nil {
			return fmt.Errorf("restore config word 0x%x: %w", sibling, err)
		}
	}
	if err := c.Storage.WriteWord(addr, val); err != nil {
		return fmt.Errorf("write config word 0x%x: %w", addr, err)
	}
	return nil
}
