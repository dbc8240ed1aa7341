// This file is part of a tn3270 core controller derived from
// https://github.com/racingmars/go3270/ in the manner described in
// DESIGN.md. Licensed under the MIT license.

// Package config parses the resource-file knobs spec §6 enumerates
// (modified_sel, extended_data_stream, color_display, dbcs,
// visible_control, reply_mode) and watches the file for live reload.
// The line scanner is grounded on rcornwell/S370's
// config/configparser (comment handling, a position-tracking line
// cursor) scaled down to this spec's six flat knobs rather than that
// package's device-registry grammar.
package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Knobs is the set of configurable behaviors spec §6 names.
type Knobs struct {
	ModifiedSel         bool
	ExtendedDataStream  bool
	ColorDisplay        bool
	DBCS                bool
	VisibleControl      bool
	ReplyMode           int // ctlr.ReplyModeField/Extended/Character
}

// Default returns the knob set a freshly connected 3270 session starts
// with absent a resource file.
func Default() Knobs {
	return Knobs{
		ExtendedDataStream: true,
		ColorDisplay:       true,
	}
}

var knownKeys = map[string]bool{
	"modified_sel":         true,
	"extended_data_stream": true,
	"color_display":        true,
	"dbcs":                 true,
	"visible_control":      true,
	"reply_mode":           true,
}

// Parse reads knob assignments from r, one per line, in the form
// "key = value" or "key value". Blank lines and lines beginning with
// '#' (after leading whitespace) are ignored. Unknown keys are
// reported as an error naming the offending line.
func Parse(r io.Reader, base Knobs) (Knobs, error) {
	k := base
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, err := splitAssignment(line)
		if err != nil {
			return k, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if !knownKeys[key] {
			return k, fmt.Errorf("line %d: unknown knob %q", lineNo, key)
		}
		if err := applyKnob(&k, key, value); err != nil {
			return k, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return k, err
	}
	return k, nil
}

func splitAssignment(line string) (key, value string, err error) {
	if i := strings.IndexByte(line, '='); i >= 0 {
		return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:]), nil
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", "", fmt.Errorf("empty directive")
	}
	if len(fields) == 1 {
		return fields[0], "true", nil
	}
	return fields[0], strings.Join(fields[1:], " "), nil
}

func applyKnob(k *Knobs, key, value string) error {
	switch key {
	case "modified_sel":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("modified_sel: %w", err)
		}
		k.ModifiedSel = b
	case "extended_data_stream":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("extended_data_stream: %w", err)
		}
		k.ExtendedDataStream = b
	case "color_display":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("color_display: %w", err)
		}
		k.ColorDisplay = b
	case "dbcs":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("dbcs: %w", err)
		}
		k.DBCS = b
	case "visible_control":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("visible_control: %w", err)
		}
		k.VisibleControl = b
	case "reply_mode":
		switch strings.ToLower(value) {
		case "field":
			k.ReplyMode = 0
		case "extended":
			k.ReplyMode = 1
		case "character":
			k.ReplyMode = 2
		default:
			return fmt.Errorf("reply_mode: unrecognized value %q", value)
		}
	}
	return nil
}

// ParseFile loads knobs from a resource file on disk, layered over
// Default().
func ParseFile(path string) (Knobs, error) {
	f, err := os.Open(path)
	if err != nil {
		return Knobs{}, err
	}
	defer f.Close()
	return Parse(f, Default())
}

// Watcher watches a resource file for changes and re-parses it on
// write, handing each new Knobs value to onChange. Modeled on the
// config-reload pattern both vibetunnel forks use fsnotify for.
type Watcher struct {
	path     string
	onChange func(Knobs)
	w        *fsnotify.Watcher

	mu   sync.Mutex
	last Knobs
}

// WatchFile starts watching path, invoking onChange once immediately
// with the initial parse and again on every subsequent write.
func WatchFile(path string, onChange func(Knobs)) (*Watcher, error) {
	k, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, err
	}
	watcher := &Watcher{path: path, onChange: onChange, w: fw, last: k}
	onChange(k)
	go watcher.loop()
	return watcher, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.w.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			k, err := ParseFile(w.path)
			if err != nil {
				continue
			}
			w.mu.Lock()
			w.last = k
			w.mu.Unlock()
			w.onChange(k)
		case _, ok := <-w.w.Errors:
			if !ok {
				return
			}
		}
	}
}

// Current returns the most recently applied knob set.
func (w *Watcher) Current() Knobs {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.w.Close()
}
