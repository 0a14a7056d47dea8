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
	"fmt"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/carverauto/gridview/pkg/logger"
	"github.com/carverauto/gridview/pkg/models"
)

// Interface counter OIDs (IF-MIB, 64-bit high capacity counters).
const (
	oidIfHCInOctets  = ".1.3.6.1.2.1.31.1.1.1.6"
	oidIfHCOutOctets = ".1.3.6.1.2.1.31.1.1.1.10"
)

const (
	defaultSNMPPort     = 161
	defaultSNMPTimeout  = 5 * time.Second
	defaultSNMPRetries  = 2
	defaultPollInterval = time.Minute
)

var errSNMPResponse = fmt.Errorf("snmp target returned error status")

// SNMPConfig describes one WAN link target to poll.
type SNMPConfig struct {
	EntityID  string          `json:"entity_id"`
	Target    string          `json:"target"`
	Port      uint16          `json:"port"`
	Community string          `json:"community"`
	IfIndex   int             `json:"if_index"`
	Interval  models.Duration `json:"interval"`
	Retention int             `json:"retention"`
}

// SNMPSource polls a link's 64-bit octet counters and converts the deltas
// into bits/sec samples ("in_bps", "out_bps") retained in memory.
type SNMPSource struct {
	cfg    SNMPConfig
	client *gosnmp.GoSNMP
	buf    *Buffer
	logger logger.Logger

	lastIn  uint64
	lastOut uint64
	lastAt  time.Time
	primed  bool
}

func NewSNMPSource(cfg SNMPConfig, log logger.Logger) *SNMPSource {
	if cfg.Port == 0 {
		cfg.Port = defaultSNMPPort
	}

	if cfg.Interval <= 0 {
		cfg.Interval = models.Duration(defaultPollInterval)
	}

	client := &gosnmp.GoSNMP{
		Target:             cfg.Target,
		Port:               cfg.Port,
		Community:          cfg.Community,
		Version:            gosnmp.Version2c,
		Timeout:            defaultSNMPTimeout,
		Retries:            defaultSNMPRetries,
		MaxOids:            gosnmp.MaxOids,
		ExponentialTimeout: true,
	}

	return &SNMPSource{
		cfg:    cfg,
		client: client,
		buf:    NewBuffer(cfg.Retention),
		logger: log,
	}
}

// Run polls the target on the configured interval until ctx is cancelled.
func (s *SNMPSource) Run(ctx context.Context) error {
	if err := s.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", s.cfg.Target, err)
	}

	defer func() {
		if s.client.Conn != nil {
			_ = s.client.Conn.Close()
		}
	}()

	ticker := time.NewTicker(s.cfg.Interval.Duration())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.poll(time.Now()); err != nil {
				s.logger.Warn().
					Err(err).
					Str("target", s.cfg.Target).
					Msg("SNMP poll failed")
			}
		}
	}
}

func (s *SNMPSource) poll(now time.Time) error {
	inOID := fmt.Sprintf("%s.%d", oidIfHCInOctets, s.cfg.IfIndex)
	outOID := fmt.Sprintf("%s.%d", oidIfHCOutOctets, s.cfg.IfIndex)

	result, err := s.client.Get([]string{inOID, outOID})
	if err != nil {
		return fmt.Errorf("SNMP Get failed: %w", err)
	}

	if result.Error != gosnmp.NoError {
		return fmt.Errorf("%w: %s", errSNMPResponse, result.Error)
	}

	var in, out uint64

	for _, v := range result.Variables {
		if v.Type == gosnmp.NoSuchObject || v.Type == gosnmp.NoSuchInstance {
			continue
		}

		value := gosnmp.ToBigInt(v.Value).Uint64()

		switch v.Name {
		case inOID:
			in = value
		case outOID:
			out = value
		}
	}

	s.record(in, out, now)

	return nil
}

// record turns a pair of counter readings into a rate sample. The first
// reading only primes the deltas; a counter going backwards (reboot or
// 64-bit wrap) re-primes instead of emitting a bogus spike.
func (s *SNMPSource) record(in, out uint64, now time.Time) {
	defer func() {
		s.lastIn, s.lastOut, s.lastAt, s.primed = in, out, now, true
	}()

	if !s.primed {
		return
	}

	elapsed := now.Sub(s.lastAt)
	if elapsed <= 0 || in < s.lastIn || out < s.lastOut {
		return
	}

	s.buf.Add(models.Sample{
		Timestamp: now,
		Values: map[string]float64{
			"in_bps":  counterRate(s.lastIn, in, elapsed),
			"out_bps": counterRate(s.lastOut, out, elapsed),
		},
	})
}

// counterRate converts an octet counter delta over elapsed time to bits/sec.
func counterRate(prev, cur uint64, elapsed time.Duration) float64 {
	return float64(cur-prev) * 8 / elapsed.Seconds()
}

// Query serves the requested window from the in-memory ring; SNMP has no
// historical store to re-query.
func (s *SNMPSource) Query(_ context.Context, _ string, start, end time.Time, _ time.Duration) ([]models.Sample, error) {
	return s.buf.Window(start, end), nil
}
