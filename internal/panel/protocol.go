package panel

import (
	"encoding/json"

	"github.com/imkarma/taskpin/internal/pin"
)

// Command names a protocol message.
type Command string

// Panel-to-host commands.
const (
	CmdGoToTask     Command = "goToTask"
	CmdStarTask     Command = "starTask"
	CmdUpdateStatus Command = "updateStatus"
	CmdRemoveTask   Command = "removeTask"
	CmdDeleteTask   Command = "deleteTask"
	CmdReorderTasks Command = "reorderTasks"
	CmdReady        Command = "ready"
	CmdRefresh      Command = "refresh"
)

// Host-to-panel commands.
const (
	CmdUpdateTasks Command = "updateTasks"
	CmdShowMessage Command = "showMessage"
	CmdRevealLine  Command = "revealLine"
)

// Message levels carried by showMessage.
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Request is a message sent by the panel to the host.
type Request struct {
	Command Command   `json:"command"`
	Task    *pin.Task `json:"task,omitempty"`
	Status  string    `json:"status,omitempty"`
	Order   []string  `json:"order,omitempty"`
}

// Push is a message sent by the host to the panel. Only the fields that
// belong to the command are encoded.
type Push struct {
	Command Command
	Tasks   []pin.Task // updateTasks
	Level   string     // showMessage
	Message string     // showMessage
	File    string     // revealLine
	Line    int        // revealLine
}

// MarshalJSON implements json.Marshaler.
func (p Push) MarshalJSON() ([]byte, error) {
	switch p.Command {
	case CmdUpdateTasks:
		tasks := p.Tasks
		if tasks == nil {
			tasks = []pin.Task{}
		}
		return json.Marshal(struct {
			Command Command    `json:"command"`
			Tasks   []pin.Task `json:"tasks"`
		}{p.Command, tasks})
	case CmdShowMessage:
		return json.Marshal(struct {
			Command Command `json:"command"`
			Level   string  `json:"level"`
			Message string  `json:"message"`
		}{p.Command, p.Level, p.Message})
	case CmdRevealLine:
		return json.Marshal(struct {
			Command Command `json:"command"`
			File    string  `json:"file"`
			Line    int     `json:"line"`
		}{p.Command, p.File, p.Line})
	default:
		return json.Marshal(struct {
			Command Command `json:"command"`
		}{p.Command})
	}
}

// UpdateTasks builds an updateTasks push.
func UpdateTasks(tasks []pin.Task) Push {
	return Push{Command: CmdUpdateTasks, Tasks: tasks}
}

// ShowMessage builds a showMessage push.
func ShowMessage(level, msg string) Push {
	return Push{Command: CmdShowMessage, Level: level, Message: msg}
}

// RevealLine builds a revealLine push.
func RevealLine(file string, line int) Push {
	return Push{Command: CmdRevealLine, File: file, Line: line}
}
