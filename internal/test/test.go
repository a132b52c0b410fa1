package test

import (
	"fmt"
	"reflect"
	"runtime/debug"
	"testing"
)

// FailOnError прерывает тест при ненулевой ошибке
func FailOnError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		return
	}
	t.Errorf("[ERROR] %v", err)
	debug.PrintStack()
	t.FailNow()
}

// Equals сравнивает значения через reflect.DeepEqual
func Equals(t testing.TB, exp interface{}, act interface{}, format string, args ...interface{}) {
	t.Helper()
	if reflect.DeepEqual(exp, act) {
		return
	}
	t.Errorf("[ERROR] %v. exp: %+v; act: %+v", fmt.Sprintf(format, args...), exp, act)
	debug.PrintStack()
	t.FailNow()
}

// True проверяет условие
func True(t testing.TB, cond bool, format string, args ...interface{}) {
	t.Helper()
	if cond {
		return
	}
	t.Errorf("[ERROR] %v", fmt.Sprintf(format, args...))
	debug.PrintStack()
	t.FailNow()
}
