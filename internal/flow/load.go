package flow

import (
	"encoding/json"
	"fmt"
	"os"
)

// Load reads and validates a flow definition from path. Any structural
// problem is fatal: the engine must not run against an incoherent graph.
func Load(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read flow definition %q: %w", path, err)
	}

	return Parse(data)
}

// Parse decodes a flow definition document, compiles its validators and
// checks structural invariants.
func Parse(data []byte) (*Graph, error) {
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("decode flow definition: %w", err)
	}

	if err := g.compile(); err != nil {
		return nil, err
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}

	return &g, nil
}

func (g *Graph) compile() error {
	for key, st := range g.States {
		if st == nil {
			return fmt.Errorf("state %q: empty definition", key)
		}
		if st.Expect == nil {
			continue
		}
		for i := range st.Expect.Validators {
			if err := st.Expect.Validators[i].Compile(); err != nil {
				return fmt.Errorf("state %q: validator %d: %w", key, i, err)
			}
		}
	}
	return nil
}

// Validate checks that the graph is coherent: the start state exists and
// every next / goto / command reference resolves to a defined state.
func (g *Graph) Validate() error {
	if len(g.States) == 0 {
		return fmt.Errorf("flow defines no states")
	}

	if _, ok := g.States[StateStart]; !ok {
		return fmt.Errorf("flow is missing the %q state", StateStart)
	}

	for key, st := range g.States {
		if st.Next != "" {
			if _, ok := g.States[st.Next]; !ok {
				return fmt.Errorf("state %q: next references unknown state %q", key, st.Next)
			}
		}
		if st.Expect != nil && st.Expect.Field == "" {
			return fmt.Errorf("state %q: expect has no field", key)
		}
		for _, row := range st.Keyboard {
			for _, btn := range row {
				if btn.Text == "" {
					return fmt.Errorf("state %q: keyboard button without text", key)
				}
				if btn.Goto == "" {
					continue
				}
				if _, ok := g.States[btn.Goto]; !ok {
					return fmt.Errorf("state %q: button %q references unknown state %q", key, btn.Text, btn.Goto)
				}
			}
		}
	}

	for _, c := range g.Commands {
		if c.State == "" {
			continue
		}
		if _, ok := g.States[c.State]; !ok {
			return fmt.Errorf("command %q references unknown state %q", c.Cmd, c.State)
		}
	}

	return nil
}
