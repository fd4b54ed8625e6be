//go:build tinygo && baremetal && (rp2040 || rp2350)

package hal

import (
	"machine"
	"time"

	"tinygo.org/x/drivers/ssd1306"
)

const (
	oledAddress = 0x3C
	oledWidth   = 128
	oledHeight  = 32
)

type tinyGoHAL struct {
	logger *uartLogger
	gpio   GPIO
	fb     Framebuffer
	flash  Flash
}

// New returns a Pico 2 (RP2350) HAL implementation.
//
// UART: UART0 on GP0 (TX) / GP1 (RX), 115200 8N1.
// OLED: SSD1306 128x32 on I2C0, GP20 (SDA) / GP21 (SCL).
// Buttons: LEFT on GP17, RIGHT on GP4, SELECT on GP16, wired to ground.
func New() HAL {
	uart := machine.UART0
	uart.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GP0,
		RX:       machine.GP1,
	})
	logger := &uartLogger{uart: uart}

	h := &tinyGoHAL{
		logger: logger,
		gpio: NewPinSet(
			newMachinePin("LEFT", machine.GP17),
			newMachinePin("RIGHT", machine.GP4),
			newMachinePin("SELECT", machine.GP16),
		),
		flash: newRP2Flash(),
	}

	fb, err := newOLED()
	if err != nil {
		Logf(logger, "hal: oled: %v", err)
		fb = newMonoFramebuffer(oledWidth, oledHeight, nil)
	}
	h.fb = fb
	return h
}

func newOLED() (Framebuffer, error) {
	i2c := machine.I2C0
	if err := i2c.Configure(machine.I2CConfig{
		Frequency: 400000,
		SDA:       machine.GP20,
		SCL:       machine.GP21,
	}); err != nil {
		return nil, err
	}
	time.Sleep(10 * time.Millisecond)

	dev := ssd1306.NewI2C(i2c)
	dev.Configure(ssd1306.Config{
		Address: oledAddress,
		Width:   oledWidth,
		Height:  oledHeight,
	})
	dev.ClearDisplay()

	return newMonoFramebuffer(oledWidth, oledHeight, func(buf []byte) error {
		if err := dev.SetBuffer(buf); err != nil {
			return err
		}
		return dev.Display()
	}), nil
}

func (h *tinyGoHAL) Logger() Logger   { return h.logger }
func (h *tinyGoHAL) GPIO() GPIO       { return h.gpio }
func (h *tinyGoHAL) Display() Display { return tinyGoDisplay{fb: h.fb} }
func (h *tinyGoHAL) Flash() Flash     { return h.flash }
func (h *tinyGoHAL) Time() Time       { return tinyGoTime{} }
