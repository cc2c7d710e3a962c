//go:build !darwin

package audio

import "fmt"

// ScreenCaptureKitAvailable возвращает false на не-darwin платформах
func ScreenCaptureKitAvailable() bool {
	return false
}

// StartScreenCaptureKitAudio недоступен на не-darwin платформах
func (c *Capture) StartScreenCaptureKitAudio() error {
	return fmt.Errorf("ScreenCaptureKit is only available on macOS 13+")
}

// StopScreenCaptureKitAudio недоступен на не-darwin платформах
func (c *Capture) StopScreenCaptureKitAudio() {
	// No-op на не-darwin платформах
}
