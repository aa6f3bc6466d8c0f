// This file was auto-generated using createmock. See the following page for
// more information:
//
//     https://github.com/jacobsa/oglemock
//

package mock_fsext

import (
	context "context"
	fmt "fmt"
	fsext "github.com/fspbridge/kfusebridge/fsext"
	oglemock "github.com/jacobsa/oglemock"
	runtime "runtime"
	unsafe "unsafe"
)

type MockHost interface {
	fsext.Host
	oglemock.MockObject
}

type mockHost struct {
	controller  oglemock.Controller
	description string
}

func NewMockHost(
	c oglemock.Controller,
	desc string) MockHost {
	return &mockHost{
		controller:  c,
		description: desc,
	}
}

func (m *mockHost) Oglemock_Id() uintptr {
	return uintptr(unsafe.Pointer(m))
}

func (m *mockHost) Oglemock_Description() string {
	return m.description
}

func (m *mockHost) Transact(p0 context.Context, p1 *fsext.InternalResponse, p2 **fsext.InternalRequest) (o0 error) {
	// Get a file name and line number for the caller.
	_, file, line, _ := runtime.Caller(1)

	// Hand the call off to the controller, which does most of the work.
	retVals := m.controller.HandleMethodCall(
		m,
		"Transact",
		file,
		line,
		[]interface{}{p0, p1, p2})

	if len(retVals) != 1 {
		panic(fmt.Sprintf("mockHost.Transact: invalid return values: %v", retVals))
	}

	// o0 error
	if retVals[0] != nil {
		o0 = retVals[0].(error)
	}

	return
}

func (m *mockHost) FreeExternal(p0 *fsext.InternalRequest) {
	// Get a file name and line number for the caller.
	_, file, line, _ := runtime.Caller(1)

	// Hand the call off to the controller, which does most of the work.
	retVals := m.controller.HandleMethodCall(
		m,
		"FreeExternal",
		file,
		line,
		[]interface{}{p0})

	if len(retVals) != 0 {
		panic(fmt.Sprintf("mockHost.FreeExternal: invalid return values: %v", retVals))
	}

	return
}
