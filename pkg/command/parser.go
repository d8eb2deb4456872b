// Package command implements the single-letter console protocol of the hub.
//
// Bytes arrive from the transport in callback context and are queued; the
// terminator byte signals a line. Lines are parsed on the hub loop, one
// line per drain step, left to right with no lookahead beyond the bytes a
// command letter consumes.
package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/sensorhub/pkg/device"
	"github.com/robotalks/sensorhub/pkg/diag"
	"github.com/robotalks/sensorhub/pkg/framework"
	"github.com/robotalks/sensorhub/pkg/output"
	"github.com/robotalks/sensorhub/pkg/peer"
	"github.com/robotalks/sensorhub/pkg/queue"
)

// Command letters.
const (
	CmdGyro         = 'g'
	CmdAccel        = 'a'
	CmdMag          = 'm'
	CmdEuler        = 'e'
	CmdADC          = 'n'
	CmdWakeOnMotion = 'w'
	CmdQuat         = 'q'
	CmdSync         = 'i'
	CmdFrequency    = 'f'
	CmdReset        = 'r'
	CmdSend         = 's'
	CmdDisconnect   = 'd'
	CmdHelp         = 'p'
	CmdSettings     = 'c'
	CmdList         = 'l'

	Quat6       = '6'
	Quat9       = '9'
	SyncEnable  = '1'
	SyncDisable = '0'

	FrequencyDigits = 3
)

// Line terminators.
const (
	TerminatorCR byte = '\r'
	TerminatorLF byte = '\n'
)

// DefaultQueueSize is the capacity of the input byte queue.
const DefaultQueueSize = 256

// Trigger is the sync control used by i and s.
type Trigger interface {
	Enable() error
	Disable() error
	ConfigStartTicks() uint64
}

// Parser executes console commands against the hub configuration.
type Parser struct {
	Terminator byte
	Config     *device.Config
	Trigger    Trigger
	Peers      peer.Manager
	Out        output.LineWriter

	queue   *queue.Bytes
	work    *framework.Work
	ended   bool
	dropLog *diag.Limited
}

// NewParser creates a Parser posting its drain job to poster.
func NewParser(poster framework.Poster, cfg *device.Config, out output.LineWriter, queueSize int) *Parser {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	p := &Parser{
		Terminator: TerminatorCR,
		Config:     cfg,
		Out:        out,
		queue:      queue.NewBytes(queueSize),
		dropLog:    diag.NewLimited("command: ", time.Second, 1),
	}
	p.work = framework.NewWork("command", poster, p.step)
	return p
}

// ReceiveBytes implements transport.Receiver. Bytes are queued one at a
// time and each terminator signals one line.
func (p *Parser) ReceiveBytes(data []byte) {
	for _, b := range data {
		if err := p.queue.PutByte(b); err != nil {
			p.dropLog.Warningf("input %v, %d bytes dropped", err, p.queue.Dropped())
			continue
		}
		if b == p.Terminator {
			p.work.Signal()
		}
	}
}

// Pending returns the number of lines signaled but not parsed.
func (p *Parser) Pending() int {
	return p.work.Pending()
}

// step parses one line. It reports false if the queue ran dry before the
// terminator.
func (p *Parser) step(ctx context.Context) bool {
	p.ended = false
	for {
		c, ok := p.queue.GetByte()
		if !ok {
			return false
		}
		if c == p.Terminator {
			return true
		}
		if err := p.exec(c); err != nil {
			glog.Warningf("command %q: %v", c, err)
			if errors.Is(err, ErrIncomplete) {
				return p.ended
			}
		}
	}
}

// next reads a continuation byte of a command.
func (p *Parser) next() (byte, error) {
	c, ok := p.queue.GetByte()
	if !ok {
		return 0, fmt.Errorf("%w: input exhausted", ErrIncomplete)
	}
	if c == p.Terminator {
		p.ended = true
		return 0, fmt.Errorf("%w: line ended", ErrIncomplete)
	}
	return c, nil
}

func (p *Parser) exec(c byte) error {
	cfg := p.Config
	switch c {
	case ' ', '\t', TerminatorCR, TerminatorLF:
	case CmdGyro:
		cfg.Gyro = true
	case CmdAccel:
		cfg.Accel = true
	case CmdMag:
		cfg.Mag = true
	case CmdEuler:
		cfg.Euler = true
	case CmdADC:
		cfg.ADC = true
		p.print(Banner(MsgADCEnabled))
	case CmdWakeOnMotion:
		cfg.WakeOnMotion = true
		p.print(Banner(MsgWakeOnMotion))
	case CmdQuat:
		return p.quat()
	case CmdSync:
		return p.sync()
	case CmdFrequency:
		return p.frequency()
	case CmdReset:
		cfg.Reset()
		p.print(Banner(MsgConfigReset))
	case CmdSend:
		p.send()
	case CmdDisconnect:
		return p.disconnect()
	case CmdHelp:
		p.print(HelpText)
	case CmdSettings:
		p.print(SettingsText(cfg))
	case CmdList:
		var slots []peer.Slot
		if p.Peers != nil {
			slots = p.Peers.Slots()
		}
		for _, s := range slots {
			glog.V(1).Infof("slot %d: peer %s handle %d packets %d", s.Index, s.ID, s.Handle, s.Received)
		}
		p.print(ListText(slots))
	default:
		p.print(Banner(MsgInvalidCommand))
		return ErrInvalid
	}
	glog.V(2).Infof("command %q: %s", c, cfg)
	return nil
}

func (p *Parser) quat() error {
	sel, err := p.next()
	if err != nil {
		return err
	}
	switch sel {
	case Quat6:
		p.Config.Quat6 = true
	case Quat9:
		p.Config.Quat9 = true
	default:
		p.print(Banner(MsgInvalidCommand))
		return fmt.Errorf("%w: quaternion mode %q", ErrMalformed, sel)
	}
	return nil
}

func (p *Parser) sync() error {
	sel, err := p.next()
	if err != nil {
		return err
	}
	switch sel {
	case SyncEnable:
		if p.Trigger != nil {
			if err := p.Trigger.Enable(); err != nil {
				return err
			}
		}
		p.Config.Sync = true
		p.print(Banner(MsgSyncStarted))
	case SyncDisable:
		if p.Trigger != nil {
			if err := p.Trigger.Disable(); err != nil {
				return err
			}
		}
		p.Config.Sync = false
		p.print(Banner(MsgSyncStopped))
	default:
		p.print(Banner(MsgInvalidCommand))
		return fmt.Errorf("%w: sync selector %q", ErrMalformed, sel)
	}
	return nil
}

func (p *Parser) frequency() error {
	var digits [FrequencyDigits]byte
	for n := range digits {
		c, err := p.next()
		if err != nil {
			return err
		}
		digits[n] = c
	}
	var hz uint16
	for _, c := range digits {
		if c < '0' || c > '9' {
			p.print(MsgInvalidFrequency)
			return fmt.Errorf("%w: frequency %q", ErrMalformed, digits[:])
		}
		hz = hz*10 + uint16(c-'0')
	}
	p.Config.FrequencyHz = hz
	return nil
}

func (p *Parser) send() {
	if p.Trigger != nil {
		p.Config.SyncStartTimeTicks = p.Trigger.ConfigStartTicks()
	}
	if p.Peers != nil {
		if err := p.Peers.Broadcast(*p.Config); err != nil {
			glog.Errorf("send config: %v", err)
			var berr *peer.BroadcastError
			if errors.As(err, &berr) {
				p.print(UndeliveredText(berr.Slots))
			}
		}
	}
	glog.Infof("config sent: %s", p.Config)
	p.print(Banner(MsgConfigSent))
}

func (p *Parser) disconnect() error {
	c, err := p.next()
	if err != nil {
		return err
	}
	if c < '0' || c > '9' {
		p.print(Banner(MsgInvalidCommand))
		return fmt.Errorf("%w: slot %q", ErrMalformed, c)
	}
	slot := int(c - '0')
	if p.Peers != nil {
		if err := p.Peers.Disconnect(slot); err != nil {
			output.Printf(p.Out, "Sensor    %d  --> not connected\n", slot)
			return err
		}
	}
	p.print(Banner(MsgDisconnected))
	return nil
}

func (p *Parser) print(text string) {
	if err := p.Out.WriteLine(text); err != nil {
		p.dropLog.Warningf("output: %v", err)
	}
}
