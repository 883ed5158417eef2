package ec

import "github.com/Boom-Hacker/nbfc-linux/internal/ui"

// Debug wraps a delegate Backend, logging every operation before
// forwarding it. Enabled by the daemon's --verbose flag.
type Debug struct {
	delegate Backend
}

// NewDebug wraps delegate with operation tracing.
func NewDebug(delegate Backend) *Debug {
	return &Debug{delegate: delegate}
}

func (b *Debug) Type() EmbeddedControllerType { return b.delegate.Type() }

func (b *Debug) Open() error {
	err := b.delegate.Open()
	ui.Debug("ec: Open() -> %v", err)
	return err
}

func (b *Debug) Close() error {
	err := b.delegate.Close()
	ui.Debug("ec: Close() -> %v", err)
	return err
}

func (b *Debug) ReadByte(register int) (byte, error) {
	v, err := b.delegate.ReadByte(register)
	ui.Debug("ec: ReadByte(0x%02x) -> 0x%02x, %v", register, v, err)
	return v, err
}

func (b *Debug) WriteByte(register int, value byte) error {
	err := b.delegate.WriteByte(register, value)
	ui.Debug("ec: WriteByte(0x%02x, 0x%02x) -> %v", register, value, err)
	return err
}

func (b *Debug) ReadWord(register int) (uint16, error) {
	v, err := b.delegate.ReadWord(register)
	ui.Debug("ec: ReadWord(0x%02x) -> 0x%04x, %v", register, v, err)
	return v, err
}

func (b *Debug) WriteWord(register int, value uint16) error {
	err := b.delegate.WriteWord(register, value)
	ui.Debug("ec: WriteWord(0x%02x, 0x%04x) -> %v", register, value, err)
	return err
}
