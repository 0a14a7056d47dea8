/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/carverauto/gridview/pkg/hierarchy"
	"github.com/carverauto/gridview/pkg/logger"
	"github.com/carverauto/gridview/pkg/models"
)

const defaultPDUSubject = "telemetry.pdu.>"

// PDUReading is the JSON payload PDUs publish per outlet.
type PDUReading struct {
	Device    string    `json:"device"`
	DeviceKey int       `json:"device_key"`
	Bank      int       `json:"bank"`
	Outlet    int       `json:"outlet"`
	Timestamp time.Time `json:"timestamp"`
	Current   *float64  `json:"current,omitempty"`
	Power     *float64  `json:"power,omitempty"`
}

// PDUConfig configures the NATS-fed power telemetry source.
type PDUConfig struct {
	URL       string `json:"url"`
	Subject   string `json:"subject"`
	RackKey   int    `json:"rack_key"`
	RackLabel string `json:"rack_label"`
	Retention int    `json:"retention"`
}

type outletKey struct {
	device string
	bank   int
	outlet int
}

// PDUSource consumes per-outlet power telemetry published on NATS subjects
// and serves both window queries (per device) and the raw grouping tree for
// the hierarchy rollup. It keeps only in-memory state; persistence belongs
// to the upstream time-series store.
type PDUSource struct {
	cfg    PDUConfig
	conn   *nats.Conn
	sub    *nats.Subscription
	logger logger.Logger

	mu      sync.RWMutex
	buffers map[string]*Buffer
	devices map[string]int
	latest  map[outletKey]PDUReading
}

func NewPDUSource(cfg PDUConfig, log logger.Logger) *PDUSource {
	if cfg.Subject == "" {
		cfg.Subject = defaultPDUSubject
	}

	return &PDUSource{
		cfg:     cfg,
		logger:  log,
		buffers: make(map[string]*Buffer),
		devices: make(map[string]int),
		latest:  make(map[outletKey]PDUReading),
	}
}

// Connect subscribes to the telemetry subject. Messages flow into the
// in-memory buffers until Close.
func (p *PDUSource) Connect() error {
	conn, err := nats.Connect(p.cfg.URL,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", p.cfg.URL, err)
	}

	sub, err := conn.Subscribe(p.cfg.Subject, func(msg *nats.Msg) {
		p.handleMessage(msg.Data)
	})
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", p.cfg.Subject, err)
	}

	p.conn = conn
	p.sub = sub

	p.logger.Info().
		Str("subject", p.cfg.Subject).
		Str("url", p.cfg.URL).
		Msg("PDU telemetry source connected")

	return nil
}

// Devices returns the entity IDs of every device seen so far, sorted.
func (p *PDUSource) Devices() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]string, 0, len(p.devices))
	for device := range p.devices {
		out = append(out, device)
	}

	sort.Strings(out)

	return out
}

func (p *PDUSource) Close() {
	if p.sub != nil {
		_ = p.sub.Unsubscribe()
	}

	if p.conn != nil {
		p.conn.Close()
	}
}

func (p *PDUSource) handleMessage(data []byte) {
	var reading PDUReading

	if err := json.Unmarshal(data, &reading); err != nil {
		p.logger.Warn().Err(err).Msg("Dropping malformed PDU reading")
		return
	}

	if reading.Device == "" {
		p.logger.Warn().Msg("Dropping PDU reading without device")
		return
	}

	values := make(map[string]float64, 2)

	if reading.Current != nil {
		values["current"] = *reading.Current
	}

	if reading.Power != nil {
		values["power"] = *reading.Power
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	buf := p.buffers[reading.Device]
	if buf == nil {
		buf = NewBuffer(p.cfg.Retention)
		p.buffers[reading.Device] = buf
	}

	buf.Add(models.Sample{Timestamp: reading.Timestamp, Values: values})

	p.devices[reading.Device] = reading.DeviceKey
	p.latest[outletKey{reading.Device, reading.Bank, reading.Outlet}] = reading
}

// Query serves the requested window for one PDU from its ring buffer.
func (p *PDUSource) Query(_ context.Context, entityID string, start, end time.Time, _ time.Duration) ([]models.Sample, error) {
	p.mu.RLock()
	buf := p.buffers[entityID]
	p.mu.RUnlock()

	if buf == nil {
		return nil, nil
	}

	return buf.Window(start, end), nil
}

// Fetch builds the raw rack -> device -> bank -> outlet tree from the latest
// reading per outlet. The caller aggregates it; this source only reports what
// each outlet last said, leaving absent fields nil.
func (p *PDUSource) Fetch(_ context.Context) (*hierarchy.Node, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	rack := &hierarchy.Node{
		Key:   p.cfg.RackKey,
		Label: p.cfg.RackLabel,
		Kind:  hierarchy.KindRack,
	}

	deviceNodes := make(map[string]*hierarchy.Node, len(p.devices))
	bankNodes := make(map[string]map[int]*hierarchy.Node)

	for device, key := range p.devices {
		node := &hierarchy.Node{Key: key, Label: device, Kind: hierarchy.KindDevice}
		deviceNodes[device] = node
		bankNodes[device] = make(map[int]*hierarchy.Node)
		rack.Children = append(rack.Children, node)
	}

	for key, reading := range p.latest {
		device := deviceNodes[key.device]
		if device == nil {
			continue
		}

		bank := bankNodes[key.device][key.bank]
		if bank == nil {
			bank = &hierarchy.Node{
				Key:   key.bank,
				Label: fmt.Sprintf("bank %d", key.bank),
				Kind:  hierarchy.KindBank,
			}
			bankNodes[key.device][key.bank] = bank
			device.Children = append(device.Children, bank)
		}

		metrics := make(map[string]*float64, 2)

		if reading.Current != nil {
			v := *reading.Current
			metrics["current"] = &v
		}

		if reading.Power != nil {
			v := *reading.Power
			metrics["power"] = &v
		}

		bank.Children = append(bank.Children, &hierarchy.Node{
			Key:     key.outlet,
			Label:   fmt.Sprintf("outlet %d", key.outlet),
			Kind:    hierarchy.KindOutlet,
			Metrics: metrics,
		})
	}

	return rack, nil
}
