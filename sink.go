// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.15
//

package gouwb

import (
	"fmt"
	"io"
	"sync"

	log "github.com/sirupsen/logrus"
)

// MotorSink accepts wheel duties (0-255). (0, 0) is the stop command.
// Sending the same command twice must be harmless.
type MotorSink interface {
	Send(left, right int) error
}

// Stop sends the stop command
func Stop(s MotorSink) error {
	return s.Send(StopCommand.Left, StopCommand.Right)
}

// SendCommand sends cmd to s
func SendCommand(s MotorSink, cmd MotorCommand) error {
	return s.Send(cmd.Left, cmd.Right)
}

// LineSink writes "PWM:left,right" lines
type LineSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewLineSink(w io.Writer) *LineSink {
	return &LineSink{w: w}
}

func (s *LineSink) Send(left, right int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.w, "PWM:%d,%d\n", left, right)
	return err
}

// VelocitySink converts duties to the motor controller velocity scale
// and writes "VEL:left,right" lines
type VelocitySink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewVelocitySink(w io.Writer) *VelocitySink {
	return &VelocitySink{w: w}
}

func (s *VelocitySink) Send(left, right int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.w, "VEL:%d,%d\n", DutyToVelocity(left), DutyToVelocity(right))
	return err
}

// LogSink only logs the commands (dry run)
type LogSink struct{}

func (LogSink) Send(left, right int) error {
	log.WithFields(log.Fields{"left": left, "right": right}).Info("motor command")
	return nil
}
