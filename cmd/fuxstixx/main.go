//go:build cgo

package main

import (
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	voice "github.com/fuxstixx/fuxstixx-core/core"
	"github.com/fuxstixx/fuxstixx-core/core/audio/miniaudio"
	"github.com/fuxstixx/fuxstixx-core/core/drone"
	"github.com/fuxstixx/fuxstixx-core/core/realtime/gemini"
	"github.com/fuxstixx/fuxstixx-core/core/speechtotext/deepgram"
	"github.com/fuxstixx/fuxstixx-core/core/terminal"
	"github.com/fuxstixx/fuxstixx-core/internal/utils"
)

const systemInstruction = "You are FuX, a terse voice copilot. Answer briefly; use your tools when asked about the drone or the terminal."

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	devices, err := miniaudio.NewClient()
	if err != nil {
		return fmt.Errorf("failed to open audio devices: %w", err)
	}
	defer devices.Close()

	updates := make(chan bridgeUpdate, 64)
	options := []voice.BridgeOption{
		voice.WithConnector(gemini.NewConnector()),
		voice.WithCaptureClient(devices),
		voice.WithPlaybackOutput(devices, devices),
		voice.WithSystemInstruction(systemInstruction),
		voice.WithStateCallback(func(state voice.State) {
			updates <- bridgeUpdate{state: utils.Ptr(state)}
		}),
		voice.WithConversationCallback(func(entries []voice.ConversationEntry) {
			updates <- bridgeUpdate{conversation: entries}
		}),
		voice.WithErrorCallback(func(err error) {
			updates <- bridgeUpdate{err: err}
		}),
	}

	if _, ok := os.LookupEnv("DEEPGRAM_API_KEY"); ok {
		options = append(options, voice.WithLocalTranscription(deepgram.NewTranscriptionClient()))
	}
	if droneURL, ok := os.LookupEnv("DRONE_CONTROL_URL"); ok {
		options = append(options, voice.WithTool(drone.NewClient(droneURL).Tool()))
	}
	if relayURL, ok := os.LookupEnv("TERMINAL_RELAY_URL"); ok {
		relay := terminal.NewRelay(relayURL)
		defer relay.Close()
		options = append(options, voice.WithTool(relay.Tool()))
	}

	bridge := voice.NewBridge(options...)
	defer bridge.Deactivate()

	// Keep stray log output away from the rendered UI.
	logFile, err := tea.LogToFile("fuxstixx.log", "fuxstixx")
	if err == nil {
		defer logFile.Close()
	} else {
		log.SetOutput(os.Stderr)
	}

	program := tea.NewProgram(newChatModel(bridge, updates), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run chat interface: %w", err)
	}
	return nil
}
