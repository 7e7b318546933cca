package native

import "strings"

// PipelineStage is a bit set of pipeline stages used for semaphore waits.
type PipelineStage uint32

// Pipeline stages.
const (
	StageTopOfPipe PipelineStage = 1 << iota
	StageTransfer
	StageComputeShader
	StageVertexShader
	StageFragmentShader
	StageColorAttachmentOutput
	StageBottomOfPipe

	StageNone        PipelineStage = 0
	StageAllCommands               = StageTopOfPipe | StageTransfer | StageComputeShader |
		StageVertexShader | StageFragmentShader | StageColorAttachmentOutput | StageBottomOfPipe
)

var stageNames = [...]string{
	"top_of_pipe",
	"transfer",
	"compute_shader",
	"vertex_shader",
	"fragment_shader",
	"color_attachment_output",
	"bottom_of_pipe",
}

// String returns a "|" separated list of stage names.
func (s PipelineStage) String() string {
	if s == StageNone {
		return "none"
	}
	var parts []string
	for i, name := range stageNames {
		if s&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "|")
}

// Command is a single recorded operation. Backends type-switch on the
// concrete command types below and return an error for ones they cannot
// encode.
type Command interface {
	CommandName() string
}

// CopyBuffer copies Size bytes from Src to Dst.
type CopyBuffer struct {
	Src, Dst             Resource
	SrcOffset, DstOffset uint64
	Size                 uint64
}

// CommandName implements Command.
func (CopyBuffer) CommandName() string { return "copy_buffer" }

// Dispatch runs a compute pipeline with one bind group at index 0.
type Dispatch struct {
	Pipeline  Resource
	BindGroup Resource
	X, Y, Z   uint32
}

// CommandName implements Command.
func (Dispatch) CommandName() string { return "dispatch" }

// Marker records nothing on the GPU. It carries a debug label and lets
// callers order work purely through graph dependencies.
type Marker struct {
	Label string
}

// CommandName implements Command.
func (Marker) CommandName() string { return "marker" }
