package ec

import (
	"fmt"
	"os"
)

// SysLinux reads and writes EC registers through the debugfs I/O port
// exposed by the ec_sys kernel module at /sys/kernel/debug/ec/ec0/io,
// using pread/pwrite at the register offset.
type SysLinux struct {
	path string
	file *os.File
}

const sysLinuxPath = "/sys/kernel/debug/ec/ec0/io"

// NewSysLinux constructs a SysLinux backend against the default debugfs path.
func NewSysLinux() *SysLinux {
	return &SysLinux{path: sysLinuxPath}
}

func (b *SysLinux) Type() EmbeddedControllerType { return TypeECSysLinux }

func (b *SysLinux) Open() error {
	f, err := os.OpenFile(b.path, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", b.path, err)
	}
	b.file = f
	return nil
}

func (b *SysLinux) Close() error {
	if b.file == nil {
		return nil
	}
	err := b.file.Close()
	b.file = nil
	return err
}

func (b *SysLinux) ReadByte(register int) (byte, error) {
	buf := make([]byte, 1)
	if _, err := b.file.ReadAt(buf, int64(register)); err != nil {
		return 0, fmt.Errorf("read register 0x%02x: %w", register, err)
	}
	return buf[0], nil
}

func (b *SysLinux) WriteByte(register int, value byte) error {
	if _, err := b.file.WriteAt([]byte{value}, int64(register)); err != nil {
		return fmt.Errorf("write register 0x%02x: %w", register, err)
	}
	return nil
}

func (b *SysLinux) ReadWord(register int) (uint16, error) {
	return readWordLE(b, register)
}

func (b *SysLinux) WriteWord(register int, value uint16) error {
	return writeWordLE(b, register, value)
}
