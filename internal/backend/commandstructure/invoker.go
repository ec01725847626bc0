package commandstructure

import (
	"fmt"
	"log/slog"
	"time"
)

// CommandInvoker executes a sequence of commands on image data
type CommandInvoker struct {
	commands []Command
}

// NewCommandInvoker creates a new command invoker
func NewCommandInvoker(commands []Command) *CommandInvoker {
	return &CommandInvoker{
		commands: commands,
	}
}

// NewCommandInvokerFromConfigs resolves every config against the DefaultRegistry.
// Creation errors surface here so that a bad pipeline fails at startup.
func NewCommandInvokerFromConfigs(configs []CommandConfig) (*CommandInvoker, error) {
	commands := make([]Command, 0, len(configs))
	for idx, cfg := range configs {
		command, err := DefaultRegistry.Create(cfg.Name, cfg.Params)
		if err != nil {
			return nil, fmt.Errorf("command at index %d: %w", idx, err)
		}
		commands = append(commands, command)
	}
	return NewCommandInvoker(commands), nil
}

// Execute applies all commands in sequence to the image data
func (i *CommandInvoker) Execute(imageData []byte) ([]byte, error) {
	start := time.Now()

	if len(i.commands) == 0 {
		slog.Debug("no commands to execute, returning original image")
		return imageData, nil
	}

	currentData := imageData

	for idx, command := range i.commands {
		commandStart := time.Now()

		processedData, err := command.Execute(currentData)
		if err != nil {
			slog.Error("command execution failed",
				"index", idx,
				"command_name", command.Name(),
				"error", err,
				"input_size_bytes", len(currentData))
			return nil, fmt.Errorf("command %s (index %d) failed: %w", command.Name(), idx, err)
		}

		slog.Debug("command completed",
			"index", idx,
			"command_name", command.Name(),
			"duration_ms", time.Since(commandStart).Milliseconds(),
			"input_size_bytes", len(currentData),
			"output_size_bytes", len(processedData))

		currentData = processedData
	}

	slog.Debug("image pipeline completed",
		"total_duration_ms", time.Since(start).Milliseconds(),
		"command_count", len(i.commands),
		"final_size_bytes", len(currentData))

	return currentData, nil
}

// ExecuteCommands resolves the configs and applies them to an image in order
func ExecuteCommands(imageData []byte, commandConfigs []CommandConfig) ([]byte, error) {
	invoker, err := NewCommandInvokerFromConfigs(commandConfigs)
	if err != nil {
		return nil, err
	}
	return invoker.Execute(imageData)
}
