package ec

import (
	"fmt"
	"os"
)

// SysLinuxACPI reads and writes EC registers through the kernel's ACPI EC
// character device (/dev/ec, falling back to acpi_ec's legacy path), which
// offers the same byte-addressable pread/pwrite interface as SysLinux but
// through a different driver.
type SysLinuxACPI struct {
	paths []string
	path  string
	file  *os.File
}

var sysLinuxACPIPaths = []string{"/dev/ec", "/dev/acpi_ec"}

// NewSysLinuxACPI constructs a SysLinuxACPI backend, trying each known
// device path on Open.
func NewSysLinuxACPI() *SysLinuxACPI {
	return &SysLinuxACPI{paths: sysLinuxACPIPaths}
}

func (b *SysLinuxACPI) Type() EmbeddedControllerType { return TypeECSysLinuxACPI }

func (b *SysLinuxACPI) Open() error {
	var lastErr error
	for _, p := range b.paths {
		f, err := os.OpenFile(p, os.O_RDWR, 0)
		if err == nil {
			b.file = f
			b.path = p
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("open acpi ec device: %w", lastErr)
}

func (b *SysLinuxACPI) Close() error {
	if b.file == nil {
		return nil
	}
	err := b.file.Close()
	b.file = nil
	return err
}

func (b *SysLinuxACPI) ReadByte(register int) (byte, error) {
	buf := make([]byte, 1)
	if _, err := b.file.ReadAt(buf, int64(register)); err != nil {
		return 0, fmt.Errorf("read register 0x%02x: %w", register, err)
	}
	return buf[0], nil
}

func (b *SysLinuxACPI) WriteByte(register int, value byte) error {
	if _, err := b.file.WriteAt([]byte{value}, int64(register)); err != nil {
		return fmt.Errorf("write register 0x%02x: %w", register, err)
	}
	return nil
}

func (b *SysLinuxACPI) ReadWord(register int) (uint16, error) {
	return readWordLE(b, register)
}

func (b *SysLinuxACPI) WriteWord(register int, value uint16) error {
	return writeWordLE(b, register, value)
}
