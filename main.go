/*
This is an example of application that will use the
engine package to test things out
*/
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/Fahien/vkr-go/engine"
	"github.com/Fahien/vkr-go/engine/core"
	"github.com/Fahien/vkr-go/testbed"
)

func main() {
	game, err := testbed.NewGame()
	if err != nil {
		panic(err)
	}

	e, err := engine.New(game)
	if err != nil {
		panic(err)
	}

	if err := e.Initialize(); err != nil {
		_ = e.Shutdown()
		panic(err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	// Signals route through the event system so the main loop winds down
	// cleanly instead of tearing the GPU down mid-frame.
	go func() {
		<-sigCh
		core.EventFire(core.EventContext{
			Type: core.EVENT_CODE_APPLICATION_QUIT,
		})
	}()

	// run engine
	runErr := e.Run()

	if err := e.Shutdown(); err != nil {
		panic(err)
	}
	if runErr != nil {
		panic(runErr)
	}
}
