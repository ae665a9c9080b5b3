package printer

// writer accumulates output and indents every line it starts.
type writer struct {
	opt         Options
	buf         []byte
	indentLevel int
	atLineStart bool
}

func newWriter(opt Options) *writer {
	return &writer{opt: opt, atLineStart: true}
}

func (w *writer) Bytes() []byte { return w.buf }

func (w *writer) writeIndent() {
	if !w.atLineStart {
		return
	}
	if w.opt.UseTabs {
		for range w.indentLevel {
			w.buf = append(w.buf, '\t')
		}
	} else {
		for range w.indentLevel * w.opt.IndentWidth {
			w.buf = append(w.buf, ' ')
		}
	}
	w.atLineStart = false
}

func (w *writer) WriteString(s string) {
	if s == "" {
		return
	}
	w.writeIndent()
	w.buf = append(w.buf, s...)
}

func (w *writer) Newline() {
	w.buf = append(w.buf, '\n')
	w.atLineStart = true
}

func (w *writer) Indent()   { w.indentLevel++ }
func (w *writer) Unindent() { w.indentLevel-- }
