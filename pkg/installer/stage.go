package installer

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/arthur-debert/tapkit/pkg/datastore"
)

// Stage is a state of the install state machine
type Stage int

const (
	StageResolving Stage = iota
	StageFetching
	StageVerifyingChecksum
	StageInstalling
	StageVerifyingBehavior
	StageDone
	StageFailed
)

var stageNames = map[Stage]string{
	StageResolving:         "Resolving",
	StageFetching:          "Fetching",
	StageVerifyingChecksum: "VerifyingChecksum",
	StageInstalling:        "Installing",
	StageVerifyingBehavior: "VerifyingBehavior",
	StageDone:              "Done",
	StageFailed:            "Failed",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// Transition classifies an install relative to what is already recorded
type Transition string

const (
	TransitionInstall   Transition = "install"
	TransitionReinstall Transition = "reinstall"
	TransitionUpgrade   Transition = "upgrade"
	TransitionDowngrade Transition = "downgrade"
)

// Classify compares the next version with the one in the previous record.
// A previous version that is not valid semver counts as an upgrade unless
// the strings are equal.
func Classify(previous *datastore.Record, next *semver.Version) Transition {
	if previous == nil {
		return TransitionInstall
	}
	prev, err := semver.NewVersion(previous.Version)
	if err != nil {
		if previous.Version == next.Original() {
			return TransitionReinstall
		}
		return TransitionUpgrade
	}
	switch next.Compare(prev) {
	case 0:
		return TransitionReinstall
	case 1:
		return TransitionUpgrade
	default:
		return TransitionDowngrade
	}
}
