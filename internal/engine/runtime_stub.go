//go:build !govips || !cgo

package engine

func Startup() error {
	return nil
}

func Shutdown() {}

func New() (Engine, error) {
	return imagingEngine{}, nil
}
