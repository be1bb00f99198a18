// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package halo_test

import (
	reflect "reflect"

	gomock "go.uber.org/mock/gomock"

	halo "code.hybscloud.com/halo"
)

// MockDataHandle is a mock of the DataHandle interface.
type MockDataHandle[T any] struct {
	ctrl     *gomock.Controller
	recorder *MockDataHandleMockRecorder[T]
}

// MockDataHandleMockRecorder is the mock recorder for MockDataHandle.
type MockDataHandleMockRecorder[T any] struct {
	mock *MockDataHandle[T]
}

// NewMockDataHandle creates a new mock instance.
func NewMockDataHandle[T any](ctrl *gomock.Controller) *MockDataHandle[T] {
	mock := &MockDataHandle[T]{ctrl: ctrl}
	mock.recorder = &MockDataHandleMockRecorder[T]{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockDataHandle[T]) EXPECT() *MockDataHandleMockRecorder[T] {
	return m.recorder
}

// FixedSize mocks base method.
func (m *MockDataHandle[T]) FixedSize() bool {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "FixedSize")
	ret0, _ := ret[0].(bool)
	return ret0
}

// FixedSize indicates an expected call of FixedSize.
func (mr *MockDataHandleMockRecorder[T]) FixedSize() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "FixedSize", reflect.TypeOf((*MockDataHandle[T])(nil).FixedSize))
}

// Gather mocks base method.
func (m *MockDataHandle[T]) Gather(buf *halo.MessageBuffer[T], index int) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "Gather", buf, index)
}

// Gather indicates an expected call of Gather.
func (mr *MockDataHandleMockRecorder[T]) Gather(buf, index any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Gather", reflect.TypeOf((*MockDataHandle[T])(nil).Gather), buf, index)
}

// Scatter mocks base method.
func (m *MockDataHandle[T]) Scatter(buf *halo.MessageBuffer[T], index, n int) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "Scatter", buf, index, n)
}

// Scatter indicates an expected call of Scatter.
func (mr *MockDataHandleMockRecorder[T]) Scatter(buf, index, n any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Scatter", reflect.TypeOf((*MockDataHandle[T])(nil).Scatter), buf, index, n)
}

// Size mocks base method.
func (m *MockDataHandle[T]) Size(index int) int {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Size", index)
	ret0, _ := ret[0].(int)
	return ret0
}

// Size indicates an expected call of Size.
func (mr *MockDataHandleMockRecorder[T]) Size(index any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Size", reflect.TypeOf((*MockDataHandle[T])(nil).Size), index)
}
