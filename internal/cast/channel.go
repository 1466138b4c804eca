package cast

import "time"

// Channel is the sustained part of a channeled cast. It ticks every
// amplitude and closes the cast when its duration runs out.
type Channel struct {
	cast      *Cast
	duration  time.Duration
	remaining time.Duration
	amplitude time.Duration
	untilTick time.Duration
	ticks     int
	open      bool
}

func newChannel(c *Cast, duration, amplitude time.Duration) *Channel {
	return &Channel{cast: c, duration: duration, amplitude: amplitude}
}

// Open starts the channel and announces its duration.
func (ch *Channel) Open() {
	ch.open = true
	ch.remaining = ch.duration
	ch.untilTick = ch.amplitude
	ch.ticks = 0
	ch.notify()
}

func (ch *Channel) IsChanneling() bool       { return ch.open }
func (ch *Channel) Duration() time.Duration  { return ch.duration }
func (ch *Channel) Remaining() time.Duration { return ch.remaining }
func (ch *Channel) Ticks() int               { return ch.ticks }

// Pushback shortens the channel by d, floored at zero.
func (ch *Channel) Pushback(d time.Duration) {
	if !ch.open || d <= 0 {
		return
	}
	ch.remaining -= d
	if ch.remaining < 0 {
		ch.remaining = 0
	}
	ch.notify()
}

// Update counts the channel down, ticking handlers on every amplitude.
func (ch *Channel) Update(dt time.Duration) {
	if !ch.open {
		return
	}
	if ch.amplitude > 0 {
		budget := dt
		if budget > ch.remaining {
			budget = ch.remaining
		}
		ch.untilTick -= budget
		for ch.open && ch.untilTick <= 0 {
			ch.untilTick += ch.amplitude
			ch.tick()
		}
	}
	if !ch.open {
		return
	}
	ch.remaining -= dt
	if ch.remaining <= 0 {
		ch.remaining = 0
		ch.Close(false)
	}
}

func (ch *Channel) tick() {
	ch.ticks++
	c := ch.cast
	for _, h := range c.handlers {
		if !ch.open || !c.casting {
			return
		}
		if t, ok := h.(ChannelTicker); ok {
			t.OnChannelTick(c, ch.ticks)
		}
	}
}

// Close ends the channel. A channel that ran out finishes the cast; a
// cancelled one leaves that to Cancel.
func (ch *Channel) Close(cancelled bool) {
	if !ch.open {
		return
	}
	ch.open = false
	ch.remaining = 0
	ch.notify()
	c := ch.cast
	if !cancelled && c.casting {
		c.cleanup(true)
	}
}

func (ch *Channel) notify() {
	c := ch.cast
	if c.spell == nil || c.passive || c.spell.IsHidden() {
		return
	}
	c.engine.notifier.ChannelUpdate(c, ch.remaining)
}
