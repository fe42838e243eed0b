// internal/keithley/k27xx.go
package keithley

import (
	"fmt"
	"strings"
	"time"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/tamzrod/keithley-scan/internal/config"
	"github.com/tamzrod/keithley-scan/internal/scpi"
)

// acTimeoutStep is added to the reply timeout for every AC channel; AC
// readings take longer to settle.
const acTimeoutStep = 4 * time.Second

// K27XX drives a 2700, 2701 or 2750 multimeter/switch system.
// It is not safe for concurrent use.
type K27XX struct {
	model   string
	cfg     config.InstrumentConfig
	opener  scpi.Opener
	dialect Dialect
	log     zerolog.Logger

	sess        *session
	identity    string
	baseTimeout time.Duration

	configuredModules map[string]string // MODULE0n -> module name
	nonAmp            map[string]bool

	index    *ChannelIndex
	scanList string

	currentMode     Mode
	readingScanList bool
	oneShot         bool
	selected        []int
}

// New27XX creates a driver. A nil opener uses scpi.Open.
func New27XX(model string, cfg config.InstrumentConfig, opener scpi.Opener, log zerolog.Logger) *K27XX {
	if opener == nil {
		opener = scpi.Open
	}
	timeout := scpi.DefaultTimeout
	if cfg.TimeoutMs > 0 {
		timeout = time.Duration(cfg.TimeoutMs) * time.Millisecond
	}
	return &K27XX{
		model:             model,
		cfg:               cfg,
		opener:            opener,
		dialect:           DialectFor(model),
		log:               log.With().Str("model", model).Logger(),
		baseTimeout:       timeout,
		configuredModules: map[string]string{},
		nonAmp:            map[string]bool{},
		index:             newChannelIndex(),
	}
}

// Open establishes the transport, checks the identity against the
// configured model and matches the installed switching modules.
func (k *K27XX) Open() error {
	if k.sess != nil {
		return errors.Wrapf(scpi.ErrState, "%s already open", k.cfg.ResourceName)
	}

	t, err := openTransport(k.opener, k.cfg, k.baseTimeout)
	if err != nil {
		return err
	}
	k.sess = &session{t: t, model: k.model, log: k.log}

	idn, err := k.dialect.Identify(k.sess)
	if err != nil {
		k.abort()
		return errors.Wrap(err, "identify")
	}
	k.identity = idn

	model := modelFromIdentity(idn)
	if model != k.model {
		k.log.Error().Str("identity", idn).Msgf("Keithley %s used doesn't match the model in the configuration", model)
	}
	if !strings.Contains(model, "27") {
		k.log.Warn().Msgf("Driver designed to use Keithley 27XX series, not %s model", model)
	}

	cards, err := k.dialect.Card(k.sess)
	if err != nil {
		k.abort()
		return errors.Wrap(err, "query switching modules")
	}
	k.matchModules(splitCards(cards))

	k.log.Info().
		Str("rsrc_name", k.cfg.ResourceName).
		Interface("modules", k.configuredModules).
		Msg("Hardware initialized")
	return nil
}

// matchModules keeps every configured module whose card is installed in its slot.
func (k *K27XX) matchModules(cards []string) {
	k.configuredModules = map[string]string{}
	k.nonAmp = map[string]bool{}

	for _, slot := range k.cfg.ModuleSlots() {
		name := strings.TrimSpace(k.cfg.Modules[slot].ModuleName)
		idx, ok := slotIndex(slot)
		if !ok || idx >= len(cards) {
			k.log.Error().Str("slot", slot).Msg("configured module slot is not reported by the instrument")
			continue
		}
		if cards[idx] != name {
			k.log.Error().Str("slot", slot).Str("card", cards[idx]).Str("configured", name).
				Msg("Switching module does not match any configuration")
			continue
		}
		k.configuredModules[slot] = name
		k.nonAmp[slot] = IsNonAmpModule(name)
	}
}

func (k *K27XX) abort() {
	if err := k.sess.close(); err != nil {
		k.log.Debug().Err(err).Msg("close after failed open")
	}
	k.sess = nil
}

func (k *K27XX) requireOpen() error {
	if k.sess == nil {
		return errors.Wrapf(scpi.ErrState, "%s is not open", k.cfg.ResourceName)
	}
	return nil
}

// Identify returns the *IDN? reply.
func (k *K27XX) Identify() (string, error) {
	if err := k.requireOpen(); err != nil {
		return "", err
	}
	return k.dialect.Identify(k.sess)
}

// ConfigurationSequence resets the instrument and configures every channel
// of every matched module. Malformed entries are skipped with a warning.
func (k *K27XX) ConfigurationSequence() error {
	if err := k.requireOpen(); err != nil {
		return err
	}
	k.log.Info().Msg("configuration sequence started")

	k.sess.setTimeout(k.baseTimeout)
	if err := k.Reset(); err != nil {
		return err
	}
	if err := k.ClearBuffer(); err != nil {
		return err
	}

	index := newChannelIndex()
	k.index = index
	k.scanList = ""
	k.selected = nil

	for _, slot := range sortedSlots(k.configuredModules) {
		for _, entry := range k.cfg.Modules[slot].Channels {
			cs, err := ResolveChannel(entry)
			if err != nil {
				k.log.Warn().Err(err).Str("slot", slot).Msg("channel skipped")
				continue
			}
			if !index.Add(cs.ID, cs.Mode) {
				k.log.Warn().Int("channel", cs.ID).Msg("channel configured twice, keeping the first entry")
				continue
			}

			if err := k.sess.writeAll(cs.Commands()...); err != nil {
				return errors.Wrapf(err, "configure channel %d", cs.ID)
			}
			if cs.Transducer == TransducerTC {
				if err := k.checkColdJunction(slot); err != nil {
					return err
				}
			}
			k.log.Info().Int("channel", cs.ID).Str("mode", cs.Mode.Function()).Msg("channel configured")

			if cs.Mode.IsAC() {
				k.sess.setTimeout(k.sess.timeout() + acTimeoutStep)
			}
			if _, err := k.checkErrors(fmt.Sprintf("channel %d", cs.ID)); err != nil {
				return err
			}
		}
	}

	k.scanList = index.ScanList()
	k.currentMode = ModeScanList
	k.log.Info().Str("scan_list", k.scanList).Msg("configuration sequence ended")
	return nil
}

// checkColdJunction reads the error queue after a thermocouple setup; a
// failure usually means the module only has an automatic reference junction.
func (k *K27XX) checkColdJunction(slot string) error {
	reply, err := k.dialect.Error(k.sess)
	if err != nil {
		return errors.Wrap(err, "read error queue")
	}
	if ie, perr := ParseInstrumentError(reply); perr == nil && ie.IsNone() {
		return nil
	}
	instrumentErrorsTotal.WithLabelValues(k.model).Inc()
	k.log.Error().Str("reply", reply).
		Msgf("Modules %v only have automatic cjc, not %s", AutoCJCModules, k.configuredModules[slot])
	return nil
}

// checkErrors logs any entry pending in the error queue. Only a failing
// query is returned as an error.
func (k *K27XX) checkErrors(step string) (InstrumentError, error) {
	ie, err := k.Error()
	if err != nil {
		if scpi.IsParse(err) {
			k.log.Warn().Err(err).Str("step", step).Msg("unreadable error queue reply")
			return InstrumentError{}, nil
		}
		return InstrumentError{}, err
	}
	if !ie.IsNone() {
		k.log.Warn().Int("code", ie.Code).Str("step", step).
			Msgf("The instrument reported: %s. Check the channel configuration against the SCPI reference tables", ie.Message)
	}
	return ie, nil
}

// Error pops one entry from the instrument error queue.
func (k *K27XX) Error() (InstrumentError, error) {
	if err := k.requireOpen(); err != nil {
		return InstrumentError{}, err
	}
	reply, err := k.dialect.Error(k.sess)
	if err != nil {
		return InstrumentError{}, errors.Wrap(err, "read error queue")
	}
	ie, err := ParseInstrumentError(reply)
	if err != nil {
		return InstrumentError{}, err
	}
	if !ie.IsNone() {
		instrumentErrorsTotal.WithLabelValues(k.model).Inc()
	}
	return ie, nil
}

// SetMode selects what the next acquisitions read.
//
// A selection without SCAN is a front panel function (VDC, VOLT:DC, ...).
// SCAN_LIST scans every configured channel; SCAN_<mode> scans the channels
// configured for that mode. It returns the selected channel list, empty for
// the front panel.
func (k *K27XX) SetMode(selection string) (string, error) {
	if err := k.requireOpen(); err != nil {
		return "", err
	}
	sel := strings.ToUpper(strings.TrimSpace(selection))

	var (
		channels string
		err      error
	)
	if !strings.Contains(sel, "SCAN") {
		err = k.setFrontMode(sel)
	} else {
		channels, err = k.setRearMode(strings.TrimPrefix(sel, "SCAN_"))
	}
	if err != nil {
		return "", err
	}

	if k.currentMode.IsCurrent() && k.allNonAmp() {
		k.log.Warn().Msg("none of the configured modules support current measurement")
	}
	if _, err := k.checkErrors("mode " + sel); err != nil {
		return "", err
	}
	return channels, nil
}

func (k *K27XX) setFrontMode(sel string) error {
	mode, err := ParseMode(sel)
	if err != nil {
		return err
	}
	if mode == ModeScanList {
		return errors.Wrapf(scpi.ErrInvalidMode, "%s is a rear panel selection", sel)
	}

	if err := k.sess.writeAll("ROUT:SCAN:LSEL NONE"); err != nil {
		return err
	}
	if err := k.InitContinuousOn(); err != nil {
		return err
	}
	if err := k.sess.writeAll("FUNC '" + mode.Function() + "'"); err != nil {
		return err
	}

	k.currentMode = mode
	k.oneShot = true
	k.readingScanList = false
	k.selected = nil
	return nil
}

func (k *K27XX) setRearMode(name string) (string, error) {
	mode, err := ParseMode(name)
	if err != nil {
		return "", err
	}

	var channels []int
	if mode == ModeScanList {
		channels = k.index.All()
		if len(channels) == 0 {
			return "", errors.Wrap(scpi.ErrState, "scan list is empty, run the configuration sequence first")
		}
	} else {
		channels = k.index.Channels(mode)
		if len(channels) == 0 {
			return "", errors.Wrapf(scpi.ErrInvalidMode, "no channel configured for %s", mode.Function())
		}
	}
	spec := ChannelSpec(channels)

	if err := k.ClearBuffer(); err != nil {
		return "", err
	}
	if err := k.InitContinuousOff(); err != nil {
		return "", err
	}

	cmds := []string{"TRIG:COUN 1"}
	single := mode != ModeScanList && len(channels) == 1
	if single {
		cmds = append(cmds,
			"SAMP:COUN 1",
			"INIT:CONT ON",
			"TRIG:SOUR IMM",
			"ROUT:SCAN:LSEL NONE",
			"ROUT:CLOS "+spec,
			"FUNC '"+mode.Function()+"'",
		)
	} else {
		cmds = append(cmds,
			"TRIG:SOUR BUS",
			fmt.Sprintf("SAMP:COUN %d", len(channels)),
			"ROUT:SCAN:LSEL NONE",
			"ROUT:SCAN "+spec,
			"ROUT:SCAN:TSO IMM",
			"ROUT:SCAN:LSEL INT",
		)
	}
	if err := k.sess.writeAll(cmds...); err != nil {
		return "", err
	}

	k.currentMode = mode
	k.oneShot = single
	k.readingScanList = !single
	k.selected = channels
	return spec, nil
}

// allNonAmp reports whether no matched module has current inputs.
func (k *K27XX) allNonAmp() bool {
	if len(k.nonAmp) == 0 {
		return false
	}
	for _, v := range k.nonAmp {
		if !v {
			return false
		}
	}
	return true
}

// Data triggers a scan when needed and parses the buffer.
func (k *K27XX) Data() (scpi.Buffer, error) {
	if err := k.requireOpen(); err != nil {
		return scpi.Buffer{}, err
	}
	if !k.oneShot {
		if err := k.sess.writeAll("INIT", "*TRG"); err != nil {
			return scpi.Buffer{}, err
		}
	}
	raw, err := k.dialect.Fetch(k.sess)
	if err != nil {
		return scpi.Buffer{}, errors.Wrap(err, "fetch")
	}
	buf, err := scpi.ParseBuffer(raw, k.oneShot)
	if err != nil {
		parseFailuresTotal.WithLabelValues(k.model).Inc()
		return buf, err
	}
	acquisitionsTotal.WithLabelValues(k.model).Inc()
	return buf, nil
}

// Sample acquires and demultiplexes one reading set.
func (k *K27XX) Sample() (Sample, error) {
	buf, err := k.Data()
	if err != nil {
		return Sample{Raw: buf.Raw}, err
	}
	return Sample{
		Raw:        buf.Raw,
		Series:     Demux(k.State(), buf.Measurements),
		Timestamps: buf.Timestamps,
	}, nil
}

// Reset clears the status registers and restores factory defaults.
func (k *K27XX) Reset() error { return k.write("*CLS", "*RST") }

// ClearBuffer empties the reading buffer.
func (k *K27XX) ClearBuffer() error { return k.write("TRAC:CLE") }

// ClearBufferAutoOn makes the instrument clear the buffer when a scan starts.
func (k *K27XX) ClearBufferAutoOn() error { return k.write("TRAC:CLE:AUTO ON") }

// ClearBufferAutoOff keeps readings of earlier scans in the buffer.
func (k *K27XX) ClearBufferAutoOff() error { return k.write("TRAC:CLE:AUTO OFF") }

// InitContinuousOn lets the trigger model run continuously, so FETCH?
// always returns a fresh front panel reading.
func (k *K27XX) InitContinuousOn() error { return k.write("INIT:CONT ON") }

// InitContinuousOff stops the trigger model after each scan; INIT and *TRG
// start the next one.
func (k *K27XX) InitContinuousOff() error { return k.write("INIT:CONT OFF") }

func (k *K27XX) write(cmds ...string) error {
	if err := k.requireOpen(); err != nil {
		return err
	}
	return k.sess.writeAll(cmds...)
}

// Close opens every relay and releases the transport.
func (k *K27XX) Close() error {
	if err := k.requireOpen(); err != nil {
		return err
	}
	var ae aerr.AggregateError
	ae.Add(k.sess.Write("ROUT:OPEN:ALL"))
	if err := k.sess.close(); err != nil {
		ae.Add(errors.Wrap(err, "close transport"))
	}
	k.sess = nil
	k.log.Info().Msg("communication ended")
	return ae.AsError()
}

// State returns a copy of the scan state used to label results.
func (k *K27XX) State() ScanState {
	return ScanState{
		Mode:            k.currentMode,
		ReadingScanList: k.readingScanList,
		OneShot:         k.oneShot,
		Selected:        append([]int(nil), k.selected...),
		Index:           k.index,
	}
}

func (k *K27XX) Model() string                { return k.model }
func (k *K27XX) IdentityString() string       { return k.identity }
func (k *K27XX) CurrentMode() Mode            { return k.currentMode }
func (k *K27XX) ReadingScanList() bool        { return k.readingScanList }
func (k *K27XX) OneShot() bool                { return k.oneShot }
func (k *K27XX) ModesChannels() *ChannelIndex { return k.index }
func (k *K27XX) ScanList() string             { return k.scanList }
func (k *K27XX) SelectedChannels() []int      { return append([]int(nil), k.selected...) }

func (k *K27XX) Timeout() time.Duration {
	if k.sess == nil {
		return k.baseTimeout
	}
	return k.sess.timeout()
}

// ConfiguredModules returns the matched modules keyed by slot.
func (k *K27XX) ConfiguredModules() map[string]string {
	out := make(map[string]string, len(k.configuredModules))
	for slot, name := range k.configuredModules {
		out[slot] = name
	}
	return out
}

func openTransport(open scpi.Opener, cfg config.InstrumentConfig, timeout time.Duration) (scpi.Transport, error) {
	t, err := open(cfg.ResourceName, scpi.Options{
		Timeout:  timeout,
		BaudRate: cfg.Serial.BaudRate,
		DataBits: cfg.Serial.DataBits,
		StopBits: cfg.Serial.StopBits,
		Parity:   cfg.Serial.Parity,
	})
	if err != nil {
		if scpi.IsConnection(err) {
			return nil, err
		}
		return nil, errors.Wrapf(scpi.ErrConnection, "open %s: %v", cfg.ResourceName, err)
	}
	return t, nil
}
