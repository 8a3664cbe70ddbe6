package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) issueCode(lectureID int) error {
	code, err := cli.attSvc.IssueCode(context.Background(), lectureID, cli.conf.AttendanceCodeTTL)
	if err != nil {
		return err
	}
	fmt.Printf("attendance code for lecture %d: %s (valid for %s)\n", lectureID, code, cli.conf.AttendanceCodeTTL)
	return nil
}
