package vm

type Key uint8

const (
	Key0 = Key(iota)
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	KeyA
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
)

// Mask returns the keypad bitmask bit for k.
func (k Key) Mask() uint16 {
	return 1 << (k & 0x0F)
}
