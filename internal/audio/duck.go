package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	maxVolume      = 150
	fadeStepPeriod = 10 * time.Millisecond
)

var percentRe = regexp.MustCompile(`(\d+)\s*%`)

// sinkInput is one playback stream known to the sound server.
type sinkInput struct {
	ID      int
	Volume  int // percent of the first channel
	AppName string
}

// mixer lists playback streams and sets their volume.
type mixer interface {
	SinkInputs(ctx context.Context) ([]sinkInput, error)
	SetVolume(ctx context.Context, id, percent int) error
}

// Ducker lowers the volume of other PulseAudio sink inputs while a reply is
// playing and restores it afterwards. Inputs whose application.name is listed
// in selfNames are left alone.
type Ducker struct {
	mix       mixer
	selfNames []string
	minVolume int

	mu     sync.Mutex
	ducked map[int]int // sink input id -> volume before ducking, nil when not ducked
}

func NewDucker(selfNames []string, minVolume int) *Ducker {
	return newDucker(pactl{}, selfNames, minVolume)
}

func newDucker(mix mixer, selfNames []string, minVolume int) *Ducker {
	return &Ducker{
		mix:       mix,
		selfNames: slices.Clone(selfNames),
		minVolume: clampVolume(minVolume),
	}
}

type volumeChange struct {
	id       int
	from, to int
}

// DuckOthers fades every foreign stream to current*factor, never below the
// minimum volume. Calling it again before UnduckOthers does nothing.
func (d *Ducker) DuckOthers(ctx context.Context, factor float64, fade time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ducked != nil {
		return nil
	}

	inputs, err := d.foreignInputs(ctx)
	if err != nil {
		return err
	}

	ducked := make(map[int]int, len(inputs))
	changes := make([]volumeChange, 0, len(inputs))
	for _, in := range inputs {
		to := int(math.Round(float64(in.Volume) * factor))
		to = clampVolume(max(to, d.minVolume))

		ducked[in.ID] = in.Volume
		changes = append(changes, volumeChange{id: in.ID, from: in.Volume, to: to})
	}

	// Recorded before fading so UnduckOthers restores streams that a failed
	// fade left partway down.
	d.ducked = ducked

	return d.fade(ctx, changes, fade)
}

// UnduckOthers fades ducked streams back to their original volume. Streams
// that appeared after ducking keep their volume.
func (d *Ducker) UnduckOthers(ctx context.Context, fade time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ducked == nil {
		return nil
	}

	inputs, err := d.foreignInputs(ctx)
	if err != nil {
		return err
	}

	var changes []volumeChange
	for _, in := range inputs {
		orig, ok := d.ducked[in.ID]
		if !ok {
			continue
		}
		changes = append(changes, volumeChange{id: in.ID, from: in.Volume, to: orig})
	}

	d.ducked = nil

	return d.fade(ctx, changes, fade)
}

func (d *Ducker) foreignInputs(ctx context.Context) ([]sinkInput, error) {
	all, err := d.mix.SinkInputs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sink inputs: %w", err)
	}

	out := all[:0:0]
	for _, in := range all {
		if !slices.Contains(d.selfNames, in.AppName) {
			out = append(out, in)
		}
	}
	return out, nil
}

// fade moves every change linearly from its start to its end volume in steps of
// fadeStepPeriod. A non-positive duration jumps straight to the end volume.
// A stream that fails to take a volume is left out of the remaining steps, so
// one vanished stream does not stop the others.
func (d *Ducker) fade(ctx context.Context, changes []volumeChange, duration time.Duration) error {
	if len(changes) == 0 {
		return nil
	}

	steps := int(duration / fadeStepPeriod)
	if steps < 1 {
		steps = 1
	}
	stepDur := duration / time.Duration(steps)
	if duration <= 0 {
		steps, stepDur = 1, 0
	}

	var errs []error
	failed := make(map[int]bool)
	for i := 1; i <= steps; i++ {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}

		frac := float64(i) / float64(steps)
		for _, c := range changes {
			if failed[c.id] {
				continue
			}
			v := int(math.Round(float64(c.from) + float64(c.to-c.from)*frac))
			if err := d.mix.SetVolume(ctx, c.id, v); err != nil {
				failed[c.id] = true
				errs = append(errs, fmt.Errorf("set volume id=%d: %w", c.id, err))
			}
		}

		if i < steps && stepDur > 0 {
			time.Sleep(stepDur)
		}
	}

	return errors.Join(errs...)
}

func clampVolume(v int) int {
	return min(max(v, 0), maxVolume)
}

// pactl drives PulseAudio (or PipeWire's pulse shim) through its CLI.
type pactl struct{}

func (pactl) SinkInputs(ctx context.Context) ([]sinkInput, error) {
	out, err := exec.CommandContext(ctx, "pactl", "list", "sink-inputs").Output()
	if err != nil {
		return nil, fmt.Errorf("pactl list sink-inputs: %w", err)
	}
	return parseSinkInputs(string(out)), nil
}

func (pactl) SetVolume(ctx context.Context, id, percent int) error {
	arg := strconv.Itoa(clampVolume(percent)) + "%"
	return exec.CommandContext(ctx, "pactl", "set-sink-input-volume", strconv.Itoa(id), arg).Run()
}

// parseSinkInputs reads the id, first volume percentage and application name of
// every block in `pactl list sink-inputs` output. Blocks with neither a volume
// nor a name are skipped.
func parseSinkInputs(text string) []sinkInput {
	blocks := strings.Split(text, "Sink Input #")
	if len(blocks) <= 1 {
		return nil
	}

	var res []sinkInput
	for _, block := range blocks[1:] {
		header, body, ok := strings.Cut(block, "\n")
		if !ok {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(header))
		if err != nil {
			continue
		}

		in := sinkInput{ID: id}
		for _, line := range strings.Split(body, "\n") {
			line = strings.TrimSpace(line)

			switch {
			case strings.HasPrefix(line, "Volume:") && in.Volume == 0:
				if m := percentRe.FindStringSubmatch(line); m != nil {
					in.Volume, _ = strconv.Atoi(m[1])
				}
			case strings.HasPrefix(line, "application.name =") && in.AppName == "":
				// application.name = "Firefox"
				if _, rest, ok := strings.Cut(line, `"`); ok {
					in.AppName, _, _ = strings.Cut(rest, `"`)
				}
			}
		}

		if in.Volume == 0 && in.AppName == "" {
			continue
		}
		res = append(res, in)
	}

	return res
}
