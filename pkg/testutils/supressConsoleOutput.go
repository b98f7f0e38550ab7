// Copyright Contributors to the Open Cluster Management project

package testutils

import (
	"fmt"
	"os"

	"k8s.io/klog/v2"
)

// Supress console output to prevent expected warnings from polluting test output.
// Call the returned func to restore stderr.
func SupressConsoleOutput() func() {
	fmt.Println("\t  !!!!! Test is supressing log output to stderr. !!!!!")

	nullFile, _ := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	stdErr := os.Stderr
	os.Stderr = nullFile

	return func() {
		klog.Flush()
		defer nullFile.Close()
		os.Stderr = stdErr
	}
}
