package thunk

import (
	"bytes"
	"context"
	"errors"
	"testing"

	rterrors "github.com/wippyai/thunk-runtime/errors"
)

func sum(_ context.Context, args []Value) (Value, error) {
	var total int64
	for _, a := range args {
		p, err := PayloadOf(a)
		if err != nil {
			return nil, err
		}
		total += p
	}
	return NewValue(total), nil
}

func mustDefine(t *testing.T, name string, arity int, body Body) *Func {
	t.Helper()
	fn, err := Define(name, arity, body)
	if err != nil {
		t.Fatalf("Define(%s) failed: %v", name, err)
	}
	return fn
}

func TestApply_SaturatesInOrder(t *testing.T) {
	for n := 0; n <= 6; n++ {
		root := mustDefine(t, "sum", n, sum)

		cur := root
		for i := 0; i < n; i++ {
			if cur.Saturated() {
				t.Fatalf("arity %d: saturated after %d args", n, i)
			}
			next, err := Apply(cur, NewValue(int64(i*10)))
			if err != nil {
				t.Fatalf("arity %d: Apply %d failed: %v", n, i, err)
			}
			if next.Rank() != i+1 {
				t.Fatalf("arity %d: rank = %d, want %d", n, next.Rank(), i+1)
			}
			if next.Arity() != n {
				t.Fatalf("arity changed: %d, want %d", next.Arity(), n)
			}
			cur = next
		}

		if !cur.Saturated() {
			t.Fatalf("arity %d: not saturated after %d args", n, n)
		}
		args := cur.Args()
		if len(args) != n {
			t.Fatalf("arity %d: %d captured args", n, len(args))
		}
		for i, a := range args {
			p, err := PayloadOf(a)
			if err != nil {
				t.Fatalf("PayloadOf failed: %v", err)
			}
			if p != int64(i*10) {
				t.Errorf("arity %d: arg %d = %d, want %d", n, i, p, i*10)
			}
		}
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	root := mustDefine(t, "sum", 3, sum)
	p1, err := Apply(root, NewValue(1))
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	a, err := Apply(p1, NewValue(2))
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	b, err := Apply(p1, NewValue(20))
	if err != nil {
		t.Fatalf("second Apply on same predecessor failed: %v", err)
	}

	if root.Rank() != 0 || p1.Rank() != 1 {
		t.Fatalf("predecessors mutated: root rank %d, p1 rank %d", root.Rank(), p1.Rank())
	}
	got, _ := a.Arg(1)
	if p, _ := PayloadOf(got); p != 2 {
		t.Errorf("branch a arg 1 = %d, want 2", p)
	}
	got, _ = b.Arg(1)
	if p, _ := PayloadOf(got); p != 20 {
		t.Errorf("branch b arg 1 = %d, want 20", p)
	}

	// branches filled to saturation still do not see each other
	a2, _ := Apply(a, NewValue(3))
	b2, _ := Apply(b, NewValue(30))
	ra, err := Invoke(context.Background(), a2, nil)
	if err != nil {
		t.Fatalf("Invoke a2 failed: %v", err)
	}
	rb, err := Invoke(context.Background(), b2, nil)
	if err != nil {
		t.Fatalf("Invoke b2 failed: %v", err)
	}
	if p, _ := PayloadOf(ra); p != 6 {
		t.Errorf("a2 = %d, want 6", p)
	}
	if p, _ := PayloadOf(rb); p != 51 {
		t.Errorf("b2 = %d, want 51", p)
	}
}

func TestAddScenario(t *testing.T) {
	ctx := context.Background()
	root := mustDefine(t, "add", 2, sum)

	p1, err := Apply(root, NewValue(3))
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	p2, err := Apply(p1, NewValue(4))
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	p1b, err := Apply(root, NewValue(10))
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	res, err := Invoke(ctx, p2, nil)
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if p, _ := PayloadOf(res); p != 7 {
		t.Fatalf("add 3 4 = %d, want 7", p)
	}

	res, err = Invoke(ctx, p1b, NewValue(5))
	if err != nil {
		t.Fatalf("Invoke p1b failed: %v", err)
	}
	if p, _ := PayloadOf(res); p != 15 {
		t.Fatalf("add 10 5 = %d, want 15", p)
	}
	if p1.Rank() != 1 {
		t.Fatalf("p1 rank = %d after branching", p1.Rank())
	}
}

func TestApply_OverApplication(t *testing.T) {
	root := mustDefine(t, "add", 1, sum)
	sat, err := Apply(root, NewValue(1))
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	_, err = Apply(sat, NewValue(2))
	if !errors.Is(err, rterrors.ErrOverApplication) {
		t.Fatalf("expected over-application, got %v", err)
	}
	if sat.Rank() != 1 || len(sat.Args()) != 1 {
		t.Fatal("saturated thunk changed by rejected Apply")
	}

	zero := mustDefine(t, "unit", 0, sum)
	if _, err := Apply(zero, NewValue(1)); !errors.Is(err, rterrors.ErrOverApplication) {
		t.Fatalf("zero arity: expected over-application, got %v", err)
	}
}

func TestApply_InvalidInput(t *testing.T) {
	root := mustDefine(t, "add", 2, sum)
	if _, err := Apply(nil, NewValue(1)); err == nil {
		t.Error("Apply(nil) should fail")
	}
	if _, err := Apply(root, nil); err == nil {
		t.Error("Apply with nil arg should fail")
	}
	var nilFunc *Func
	if _, err := Apply(root, nilFunc); err == nil {
		t.Error("Apply with typed nil arg should fail")
	}
}

func TestNewRoot_Invalid(t *testing.T) {
	if _, err := NewRoot(nil, 1); err == nil {
		t.Error("nil entry should fail")
	}
	_, err := NewRoot(&Native{Name: "f"}, -1)
	var rerr *rterrors.Error
	if !errors.As(err, &rerr) || rerr.Kind != rterrors.KindInvalidInput {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestNewValue(t *testing.T) {
	for _, payload := range []int64{0, 1, -1, 1 << 62, -(1 << 62)} {
		v := NewValue(payload)
		if v.Arity() != 0 {
			t.Errorf("arity = %d, want 0", v.Arity())
		}
		if v.Payload() != payload {
			t.Errorf("payload = %d, want %d", v.Payload(), payload)
		}
		var val Value = v
		if _, ok := val.(*Func); ok {
			t.Error("scalar should not carry an entry point")
		}
	}
}

func TestInvoke_Scalar(t *testing.T) {
	_, err := Invoke(context.Background(), NewValue(3), NewValue(1))
	if !errors.Is(err, rterrors.ErrInvalidDispatch) {
		t.Fatalf("expected invalid dispatch, got %v", err)
	}
	_, err = Invoke(context.Background(), nil, nil)
	if !errors.Is(err, rterrors.ErrInvalidDispatch) {
		t.Fatalf("expected invalid dispatch for nil, got %v", err)
	}
}

func TestInvoke_PassesThunkAndArgument(t *testing.T) {
	var gotFn *Func
	var gotArg Value
	entry := EntryFunc(func(_ context.Context, fn *Func, arg Value) (Value, error) {
		gotFn, gotArg = fn, arg
		return NewValue(99), nil
	})
	root, err := NewRoot(entry, 3)
	if err != nil {
		t.Fatalf("NewRoot failed: %v", err)
	}

	// no saturation check before dispatch
	res, err := Invoke(context.Background(), root, NewValue(1))
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if gotFn != root {
		t.Error("entry did not receive the invoked thunk")
	}
	if p, _ := PayloadOf(gotArg); p != 1 {
		t.Errorf("entry arg = %v", gotArg)
	}
	if p, _ := PayloadOf(res); p != 99 {
		t.Errorf("result = %v", res)
	}
}

func TestInvoke_NilResult(t *testing.T) {
	entry := EntryFunc(func(context.Context, *Func, Value) (Value, error) {
		return nil, nil
	})
	root, _ := NewRoot(entry, 0)
	if _, err := Invoke(context.Background(), root, nil); !errors.Is(err, rterrors.ErrInvalidDispatch) {
		t.Fatalf("expected invalid dispatch, got %v", err)
	}
}

func TestNative_CurriesOneAtATime(t *testing.T) {
	ctx := context.Background()
	calls := 0
	root := mustDefine(t, "add3", 3, func(ctx context.Context, args []Value) (Value, error) {
		calls++
		return sum(ctx, args)
	})

	v, err := Invoke(ctx, root, NewValue(1))
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	fn, ok := v.(*Func)
	if !ok || fn.Rank() != 1 {
		t.Fatalf("expected partial of rank 1, got %v", v)
	}

	v, err = Call(ctx, fn, NewValue(2), NewValue(3))
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if p, _ := PayloadOf(v); p != 6 {
		t.Fatalf("add3 1 2 3 = %d, want 6", p)
	}
	if calls != 1 {
		t.Fatalf("body ran %d times, want 1", calls)
	}

	// nil argument on unsaturated thunk returns it unchanged
	same, err := Invoke(ctx, fn, nil)
	if err != nil || same != fn {
		t.Fatalf("Invoke(nil) = %v, %v", same, err)
	}
}

func TestNative_ReturnsFunction(t *testing.T) {
	ctx := context.Background()
	add := mustDefine(t, "add", 2, sum)
	// adder x = add x
	adder := mustDefine(t, "adder", 1, func(_ context.Context, args []Value) (Value, error) {
		return Apply(add, args[0])
	})
	// constant zero-arity function returning add
	getAdd := mustDefine(t, "getAdd", 0, func(context.Context, []Value) (Value, error) {
		return add, nil
	})

	v, err := Call(ctx, adder, NewValue(5), NewValue(6))
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if p, _ := PayloadOf(v); p != 11 {
		t.Fatalf("adder 5 6 = %d, want 11", p)
	}

	v, err = Call(ctx, getAdd, NewValue(1), NewValue(2))
	if err != nil {
		t.Fatalf("Call through zero-arity failed: %v", err)
	}
	if p, _ := PayloadOf(v); p != 3 {
		t.Fatalf("getAdd 1 2 = %d, want 3", p)
	}

	v, err = Call(ctx, getAdd)
	if err != nil {
		t.Fatalf("Call() failed: %v", err)
	}
	if v != Value(add) {
		t.Fatalf("getAdd() = %v, want add", v)
	}
}

func TestNative_CallAdd(t *testing.T) {
	ctx := context.Background()
	add := mustDefine(t, "add", 2, sum)
	callAdd := mustDefine(t, "call_add", 4, func(ctx context.Context, args []Value) (Value, error) {
		l, err := Call(ctx, add, args[0], args[1])
		if err != nil {
			return nil, err
		}
		r, err := Call(ctx, add, args[2], args[3])
		if err != nil {
			return nil, err
		}
		return Call(ctx, add, l, r)
	})

	tests := []struct {
		args [4]int64
		want int64
	}{
		{[4]int64{1, 1, 1, 1}, 4},
		{[4]int64{3, 5, 7, 9}, 24},
	}
	for _, tt := range tests {
		v, err := Call(ctx, callAdd, NewValue(tt.args[0]), NewValue(tt.args[1]), NewValue(tt.args[2]), NewValue(tt.args[3]))
		if err != nil {
			t.Fatalf("call_add failed: %v", err)
		}
		if p, _ := PayloadOf(v); p != tt.want {
			t.Errorf("call_add %v = %d, want %d", tt.args, p, tt.want)
		}
	}
}

func TestNative_BodyErrors(t *testing.T) {
	ctx := context.Background()
	root, _ := NewRoot(&Native{Name: "empty"}, 0)
	if _, err := Invoke(ctx, root, nil); !errors.Is(err, rterrors.ErrInvalidDispatch) {
		t.Fatalf("expected invalid dispatch for missing body, got %v", err)
	}

	add := mustDefine(t, "add", 1, sum)
	inner := mustDefine(t, "inner", 0, sum)
	_, err := Call(ctx, add, inner)
	var rerr *rterrors.Error
	if !errors.As(err, &rerr) || rerr.Kind != rterrors.KindTypeMismatch {
		t.Fatalf("expected type mismatch for function argument, got %v", err)
	}
}

func TestArg_Bounds(t *testing.T) {
	root := mustDefine(t, "add", 2, sum)
	p1, _ := Apply(root, NewValue(1))
	if _, err := p1.Arg(1); err == nil {
		t.Error("Arg beyond rank should fail")
	}
	if _, err := p1.Arg(-1); err == nil {
		t.Error("negative Arg should fail")
	}
	if p1.Remaining() != 1 {
		t.Errorf("Remaining = %d, want 1", p1.Remaining())
	}

	args := p1.Args()
	args[0] = NewValue(42)
	got, _ := p1.Arg(0)
	if p, _ := PayloadOf(got); p != 1 {
		t.Error("Args returned aliased storage")
	}
}

func TestDump(t *testing.T) {
	root := mustDefine(t, "add", 2, sum)
	p1, _ := Apply(root, NewValue(3))

	tests := []struct {
		v    Value
		want string
	}{
		{p1, "entry = add, arity = 2, rank = 1\n"},
		{NewValue(7), "value = 7\n"},
		{nil, "<nil>\n"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		if err := Dump(&buf, tt.v); err != nil {
			t.Fatalf("Dump failed: %v", err)
		}
		if buf.String() != tt.want {
			t.Errorf("Dump = %q, want %q", buf.String(), tt.want)
		}
	}

	anon, _ := NewRoot(EntryFunc(func(context.Context, *Func, Value) (Value, error) { return nil, nil }), 1)
	if anon.Name() != "thunk.EntryFunc" {
		t.Errorf("anonymous entry name = %q", anon.Name())
	}
}

func TestDescribe(t *testing.T) {
	root := mustDefine(t, "add", 2, sum)
	tests := []struct {
		v    Value
		want string
	}{
		{root, "function add"},
		{NewValue(3), "value 3"},
		{nil, "nil"},
	}
	for _, tt := range tests {
		if got := Describe(tt.v); got != tt.want {
			t.Errorf("Describe = %q, want %q", got, tt.want)
		}
	}
}
