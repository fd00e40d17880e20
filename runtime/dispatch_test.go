/*
 * mipsrecomp - recompiled-code runtime support tests: dispatch.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package runtime

import "testing"

func TestLookupFunctionResolvesRegistered(t *testing.T) {
	called := false
	RegisterFunction(0xDEAD0000, func(rdram []byte, ctx *Context) { called = true })

	fn := LookupFunction(0xDEAD0000)
	fn(nil, &Context{})
	if !called {
		t.Errorf("resolved function was not invoked")
	}
}

func TestLookupFunctionPanicsOnMiss(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected a panic for an unregistered vram")
		}
	}()
	LookupFunction(0xBAADF00D)
}

func TestCallReferenceSymbolDispatchesToRegisteredImport(t *testing.T) {
	called := false
	RegisterReferenceSymbol(3, 7, func(rdram []byte, ctx *Context) { called = true })

	CallReferenceSymbol(nil, &Context{}, 3, 7, 0x100)
	if !called {
		t.Errorf("CallReferenceSymbol did not invoke the registered import")
	}
}

func TestTriggerEventDispatchesToRegisteredHandler(t *testing.T) {
	called := false
	RegisterEventHandler(5, func(ctx *Context) { called = true })

	TriggerEvent(&Context{}, 5)
	if !called {
		t.Errorf("TriggerEvent did not invoke the registered handler")
	}
}

func TestTriggerEventIgnoresUnregisteredIndex(t *testing.T) {
	TriggerEvent(&Context{}, 99999)
}
