/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package health

import (
	"fmt"

	"github.com/Knetic/govaluate"
)

// alarmVariables are the decoded field names an alarm expression may
// reference.
var alarmVariables = map[string]bool{
	"voltage":     true,
	"temperature": true,
}

// Alarm is one configured threshold expression, evaluated against a
// decoded voltage/temperature reading each cycle. Expressions look like
// "voltage < 0.85 || voltage > 1.15", the same operator-supplied
// govaluate-expression pattern used for clock-quality alarm thresholds.
type Alarm struct {
	Name string
	expr *govaluate.EvaluableExpression
}

// NewAlarm compiles exprStr into an Alarm named name, rejecting any
// expression that references a variable other than alarmVariables.
func NewAlarm(name, exprStr string) (*Alarm, error) {
	expr, err := govaluate.NewEvaluableExpression(exprStr)
	if err != nil {
		return nil, fmt.Errorf("health: compiling alarm %q: %w", name, err)
	}
	for _, v := range expr.Vars() {
		if !alarmVariables[v] {
			return nil, fmt.Errorf("health: alarm %q references unsupported variable %q", name, v)
		}
	}
	return &Alarm{Name: name, expr: expr}, nil
}

// Evaluate runs the alarm against one voltage/temperature sample and
// reports whether it fired.
func (a *Alarm) Evaluate(voltage, temperature float64) (bool, error) {
	result, err := a.expr.Evaluate(map[string]interface{}{
		"voltage":     voltage,
		"temperature": temperature,
	})
	if err != nil {
		return false, fmt.Errorf("health: evaluating alarm %q: %w", a.Name, err)
	}
	fired, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("health: alarm %q did not evaluate to a boolean", a.Name)
	}
	return fired, nil
}

// Finding is one alarm that fired against a specific rail/port reading.
type Finding struct {
	AlarmName string
	Subject   string // e.g. "assistant rail1", "port 3 transceiver"
	Voltage   float64
	Temperature float64
}
