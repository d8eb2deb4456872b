package sensor

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/sensorhub/pkg/diag"
	"github.com/robotalks/sensorhub/pkg/framework"
	"github.com/robotalks/sensorhub/pkg/output"
	"github.com/robotalks/sensorhub/pkg/queue"
)

// MaxSlots is the number of peers connected at the same time.
const MaxSlots = 8

// DefaultQueueSize is the packet queue capacity.
const DefaultQueueSize = 256

// Demux decodes notifications from all peers into one packet queue and
// formats queued packets to the console from the loop.
type Demux struct {
	out     output.LineWriter
	queue   *queue.Ring[Packet]
	work    *framework.Work
	invalid atomic.Uint64

	dropLog  *diag.Limited
	errLog   *diag.Limited
	eulerLog *diag.Limited
}

// NewDemux creates a Demux posting its drain job to poster.
func NewDemux(poster framework.Poster, out output.LineWriter, queueSize int) *Demux {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	d := &Demux{
		out:      out,
		queue:    queue.NewRing[Packet](queueSize),
		dropLog:  diag.NewLimited("sensor: ", time.Second, 1),
		errLog:   diag.NewLimited("sensor: ", time.Second, 1),
		eulerLog: diag.NewLimited("sensor: ", 100*time.Millisecond, 1),
	}
	d.work = framework.NewWork("sensor", poster, d.step)
	return d
}

// HandleNotification decodes a notification from slot and queues the
// packets. It runs in callback context: it only decodes, enqueues and
// signals. Receive counting is left to the peer table.
func (d *Demux) HandleNotification(slot int, kind Kind, payload []byte) error {
	if slot < 0 || slot >= MaxSlots {
		return fmt.Errorf("sensor: slot %d out of range", slot)
	}
	var pkts []Packet
	var err error
	switch kind {
	case KindQuaternion:
		pkts, err = DecodeQuaternions(slot, payload)
	case KindRaw:
		pkts, err = DecodeRaw(slot, payload)
	case KindADC:
		var adc *ADC
		if adc, err = DecodeADC(slot, payload); err == nil {
			pkts = []Packet{adc}
		}
	case KindEuler:
		var e Euler
		if e, err = DecodeEuler(payload); err == nil && glog.V(1) {
			d.eulerLog.Infof("%d euler yaw=%.3f pitch=%.3f roll=%.3f", slot, e.Yaw, e.Pitch, e.Roll)
		}
	default:
		err = fmt.Errorf("%w: %v", ErrMalformedNotification, kind)
	}
	if err != nil {
		d.invalid.Add(1)
		d.errLog.Warningf("slot %d: %v", slot, err)
		return err
	}
	for _, pkt := range pkts {
		if err := d.queue.Put(pkt); err != nil {
			d.dropLog.Warningf("slot %d: %v, %d dropped", slot, err, d.queue.Dropped())
			return err
		}
		d.work.Signal()
	}
	return nil
}

// Invalid returns the number of notifications that failed to decode.
func (d *Demux) Invalid() uint64 {
	return d.invalid.Load()
}

// Dropped returns the number of packets lost to a full queue.
func (d *Demux) Dropped() uint64 {
	return d.queue.Dropped()
}

// Pending returns the number of packets not yet formatted.
func (d *Demux) Pending() int {
	return d.work.Pending()
}

func (d *Demux) step(ctx context.Context) bool {
	pkt, ok := d.queue.Get()
	if !ok {
		return false
	}
	if err := d.out.WriteLine(Format(pkt)); err != nil {
		d.dropLog.Warningf("output: %v", err)
	}
	return true
}
