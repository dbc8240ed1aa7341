// This file is part of a tn3270 core controller derived from
// https://github.com/racingmars/go3270/ in the manner described in
// DESIGN.md. Licensed under the MIT license.

package nvt

// stepText accumulates the numeric OSC code (the "n" in "ESC ] n ;
// text BEL") until ';' (spec §4.5 "OSC").
func (p *Processor) stepText(c byte) {
	switch {
	case c >= '0' && c <= '9':
		p.oscCode = p.oscCode*10 + int(c-'0')
	case c == ';':
		p.state = StateText2
	case c == 0x07:
		p.flushOSC()
		p.state = StateData
	default:
		p.CB.Trace("nvt: malformed OSC header byte 0x%02x", c)
		p.state = StateData
	}
}

// stepText2 accumulates OSC text until BEL (or ESC \\, the ST
// terminator).
func (p *Processor) stepText2(c byte) {
	switch c {
	case 0x07:
		p.flushOSC()
		p.state = StateData
	case 0x1B:
		p.flushOSC()
		p.state = StateEsc // trailing ESC \ consumed as a no-op ESC
	default:
		p.oscText = append(p.oscText, c)
	}
}

func (p *Processor) flushOSC() {
	p.CB.XtermText(p.oscCode, string(p.oscText))
}
