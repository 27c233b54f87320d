package spatialmath

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"
)

// Rotation names accepted by ParseRotation.
const (
	RotationNone   = "none"
	RotationFlipYZ = "flip_yz"
)

// ParseRotation resolves a configured rotation name to a quaternion.
// "none" is the identity and "flip_yz" is a half turn about X, negating the
// Y and Z axes the way the device frame relates to the rendering view frame.
// Anything else must be a JSON array of [x y z w] components.
func ParseRotation(name string) (quat.Number, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case RotationNone, "identity", "":
		return NewZeroRotation(), nil
	case RotationFlipYZ:
		return quat.Number{Imag: 1}, nil
	}
	if strings.HasPrefix(strings.TrimSpace(name), "[") {
		var comps [4]float64
		if err := json.Unmarshal([]byte(name), &comps); err != nil {
			return quat.Number{}, errors.Wrapf(err, "cannot parse rotation %q", name)
		}
		return Normalize(QuatFromScalarLast(comps)), nil
	}
	return quat.Number{}, errors.Errorf("unknown rotation %q", name)
}

// A FrameStep is one named rotation in an ordered chain of frame changes.
type FrameStep struct {
	Name     string
	Rotation quat.Number
}

// A FrameChain is an ordered list of named rotations carrying an attitude
// from the orientation sensor's frame through the device frame to the view
// frame. Keeping the steps named makes a misordered chain visible in logs
// instead of silently producing a mirrored scene.
type FrameChain struct {
	steps []FrameStep
}

// NewFrameChain builds a chain from explicit steps.
func NewFrameChain(steps ...FrameStep) *FrameChain {
	return &FrameChain{steps: steps}
}

// NewFrameChainFromNames builds a chain by parsing each configured rotation
// name in order.
func NewFrameChainFromNames(names ...string) (*FrameChain, error) {
	steps := make([]FrameStep, 0, len(names))
	for _, name := range names {
		q, err := ParseRotation(name)
		if err != nil {
			return nil, err
		}
		steps = append(steps, FrameStep{Name: name, Rotation: q})
	}
	return &FrameChain{steps: steps}, nil
}

// Apply carries an attitude through every step of the chain in order. Each
// step right-multiplies the running rotation and the result is renormalized
// at every composition.
func (fc *FrameChain) Apply(attitude quat.Number) quat.Number {
	out := Normalize(attitude)
	for _, step := range fc.steps {
		out = Compose(out, step.Rotation)
	}
	return out
}

// Rotation returns the single rotation equivalent to the whole chain.
func (fc *FrameChain) Rotation() quat.Number {
	return fc.Apply(NewZeroRotation())
}

// Len returns the number of steps in the chain.
func (fc *FrameChain) Len() int {
	return len(fc.steps)
}

func (fc *FrameChain) String() string {
	if len(fc.steps) == 0 {
		return "frame chain (empty)"
	}
	names := make([]string, 0, len(fc.steps))
	for _, step := range fc.steps {
		names = append(names, step.Name)
	}
	return fmt.Sprintf("frame chain %s", strings.Join(names, " -> "))
}
