package entities

// UpdateTask is one line-level edit: move the instruction of a Dockerfile to the target image.
type UpdateTask struct {
	Dockerfile  DockerfilePath
	Instruction FromInstruction
	Current     ImageReference
	Target      ImageReference
	Forced      bool
}

// Replacement returns the token written in place of the current image. The repository
// keeps its original spelling so registry prefixes survive the edit.
func (t UpdateTask) Replacement() string {
	return t.Current.WithTag(t.Target.Tag).String()
}

// BuildUpdateTasks runs the tag decision over every instruction of dockerfile and
// returns one task per instruction that needs an update.
func BuildUpdateTasks(dockerfile DockerfilePath, target ImageReference, forced bool) []UpdateTask {
	var tasks []UpdateTask
	for _, instruction := range dockerfile.Instructions {
		if !instruction.Image.SameRepository(target) {
			continue
		}
		if DecideTag(instruction.Image, target, forced) != Update {
			continue
		}
		tasks = append(tasks, UpdateTask{
			Dockerfile:  dockerfile,
			Instruction: instruction,
			Current:     instruction.Image,
			Target:      target,
			Forced:      forced,
		})
	}
	return tasks
}
