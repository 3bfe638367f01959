package machine_test

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mna/nymphea/internal/filetest"
	"github.com/mna/nymphea/lang/compiler"
	"github.com/mna/nymphea/lang/machine"
)

var testUpdateExecTests = flag.Bool("test.update-exec-tests", false, "If set, updates the expected results of exec tests.")

func runSource(t *testing.T, src string, cfg machine.Config) (stdout, stderr string, err error) {
	t.Helper()

	vm := machine.New(cfg)
	var out, errb bytes.Buffer
	vm.Stdout = &out
	vm.Stderr = &errb
	err = vm.Interpret(src)
	return out.String(), errb.String(), err
}

func TestExecBasics(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{"number", "print(1 + 2);", "3\n"},
		{"float", "print(5 / 2);", "2.5\n"},
		{"string", `print("hi");`, "hi\n"},
		{"concat", `print("foo" + "bar");`, "foobar\n"},
		{"bools", "print(true); print(!true);", "true\nfalse\n"},
		{"nil", "print(nil);", "nil\n"},
		{"compare", "print(1 < 2); print(2 <= 1); print(1 == 1.0); print(1 != 2);",
			"true\nfalse\ntrue\ntrue\n"},
		{"grouping", "print((1 + 2) * 3);", "9\n"},
		{"negate", "print(-(3));", "-3\n"},
		{"and or", "print(true and 2); print(false or 3); print(nil and 1);",
			"2\n3\nnil\n"},
		{"globals", "var x = 1; x = x + 2; print(x);", "3\n"},
		{"compound", "var x = 1; x += 2; x *= 3; x -= 1; x /= 2; print(x);", "4\n"},
		{"locals", "{ var a = 1; { var b = a + 1; print(b); } }", "2\n"},
		{"if else", "if (1 < 2) { print(\"then\"); } else { print(\"else\"); }", "then\n"},
		{"while", "var i = 0; var s = 0; while (i < 4) { s += i; i += 1; } print(s);", "6\n"},
		{"for", "var s = 0; for (var i = 1; i <= 3; i = i + 1) { s += i; } print(s);", "6\n"},
		{"fn", "fn add(a, b) { return a + b; } print(add(1, 2));", "3\n"},
		{"recursion", "fn fib(n) { if (n < 2) { return n; } return fib(n - 1) + fib(n - 2); } print(fib(10));", "55\n"},
		{"interpolation", "var n = 3; print(\"x=${n}\");", "x=3\n"},
		{"interpolation expr", `print("${1 + 2}${"!"}");`, "3!\n"},
		{"division by zero", "print(1 / 0);", "+Inf\n"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			out, errOut, err := runSource(t, c.src, machine.Config{})
			require.NoError(t, err, "stderr: %s", errOut)
			assert.Equal(t, c.want, out)
		})
	}
}

func TestExecClosures(t *testing.T) {
	t.Run("counter", func(t *testing.T) {
		out, _, err := runSource(t, `
fn makeCounter() {
	var n = 0;
	fn inc() {
		n = n + 1;
		return n;
	}
	return inc;
}
var c = makeCounter();
print(c());
print(c());
`, machine.Config{})
		require.NoError(t, err)
		assert.Equal(t, "1\n2\n", out)
	})

	t.Run("shared upvalue", func(t *testing.T) {
		out, _, err := runSource(t, `
fn make() {
	var n = 0;
	fn inc() { n = n + 1; }
	fn get() { return n; }
	return [inc, get];
}
var fns = make();
fns[0]();
fns[0]();
print(fns[1]());
`, machine.Config{})
		require.NoError(t, err)
		assert.Equal(t, "2\n", out)
	})

	t.Run("loop counter", func(t *testing.T) {
		out, _, err := runSource(t, `
var a = [];
for (var i = 0; i < 3; i = i + 1) {
	fn f() { print(i); }
	a.push(f);
}
for (var j = 0; j < 3; j = j + 1) {
	a[j]();
}
`, machine.Config{})
		require.NoError(t, err)
		assert.Equal(t, "0\n1\n2\n", out)
	})
}

func TestExecClasses(t *testing.T) {
	t.Run("inheritance and super", func(t *testing.T) {
		out, _, err := runSource(t, `
class A {
	fn greet() { print("A"); }
}
class B < A {
	fn greet() {
		super.greet();
		print("B");
	}
}
B().greet();
`, machine.Config{})
		require.NoError(t, err)
		assert.Equal(t, "A\nB\n", out)
	})

	t.Run("initialiser returns receiver", func(t *testing.T) {
		out, _, err := runSource(t, `
class C {
	fn init(x) { this.x = x; }
	fn get() { return this.x; }
}
print(C(42).get());
`, machine.Config{})
		require.NoError(t, err)
		assert.Equal(t, "42\n", out)
	})

	t.Run("explicit bare return in initialiser", func(t *testing.T) {
		out, _, err := runSource(t, `
class C {
	fn init() { this.x = 1; return; }
}
print(C().x);
`, machine.Config{})
		require.NoError(t, err)
		assert.Equal(t, "1\n", out)
	})

	t.Run("fields and methods", func(t *testing.T) {
		out, _, err := runSource(t, `
class Point {
	fn init(x, y) { this.x = x; this.y = y; }
	fn sum() { return this.x + this.y; }
}
var p = Point(1, 2);
p.x = 10;
print(p.sum());
var m = p.sum;
print(m());
`, machine.Config{})
		require.NoError(t, err)
		assert.Equal(t, "12\n12\n", out)
	})

	t.Run("inherited method uses child receiver", func(t *testing.T) {
		out, _, err := runSource(t, `
class A {
	fn who() { return "A"; }
	fn describe() { print(this.who()); }
}
class B < A {
	fn who() { return "B"; }
}
B().describe();
`, machine.Config{})
		require.NoError(t, err)
		assert.Equal(t, "B\n", out)
	})
}

func TestExecRuntimeErrors(t *testing.T) {
	cases := []struct {
		name     string
		src      string
		kind     machine.Kind
		message  string
		inStderr string
	}{
		{
			"arity mismatch",
			"fn f(a, b) { return a + b; } f(1);",
			machine.RuntimeError,
			"Expected 2 arguments but got 1.",
			"[line 1] in script",
		},
		{
			"undefined global",
			"print(nope);",
			machine.RuntimeError,
			"Undefined variable 'nope'.",
			"[line 1] in script",
		},
		{
			"string plus number",
			`var n = 3; print("x=" + n);`,
			machine.TypeError,
			"Operands must be two numbers or two strings.",
			"[line 1] in script",
		},
		{
			"call non-callable",
			"var x = 1; x();",
			machine.TypeError,
			"Can only call functions and classes.",
			"",
		},
		{
			"bad superclass",
			"var NotClass = 3; class A < NotClass { }",
			machine.TypeError,
			"Superclass must be a class.",
			"",
		},
		{
			"missing property",
			"class C { } C().nope;",
			machine.AttributeError,
			"Undefined property 'nope'.",
			"",
		},
		{
			"property on number",
			"var n = 1; n.x;",
			machine.TypeError,
			"Only instances have properties.",
			"",
		},
		{
			"too many class args",
			"class C { } C(1);",
			machine.RuntimeError,
			"Expected 0 arguments but got 1.",
			"",
		},
		{
			"vec index out of range",
			"var a = [1]; a[3];",
			machine.IndexError,
			"Vec index out of range.",
			"",
		},
		{
			"negate non-number",
			`-"x";`,
			machine.TypeError,
			"Operand must be a number.",
			"",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, errOut, err := runSource(t, c.src, machine.Config{})
			require.Error(t, err)
			merr, ok := err.(*machine.Error)
			require.True(t, ok, "error type: %T", err)
			assert.Equal(t, c.kind, merr.Kind)
			assert.Equal(t, c.message, merr.Message)
			assert.Contains(t, errOut, c.message)
			if c.inStderr != "" {
				assert.Contains(t, errOut, c.inStderr)
			}
		})
	}
}

func TestExecTracebackLines(t *testing.T) {
	_, errOut, err := runSource(t, "var x = 1;\nvar y = 2;\nnope;", machine.Config{})
	require.Error(t, err)
	assert.Contains(t, errOut, "[line 3] in script")

	_, errOut, err = runSource(t, `fn f() {
	nope;
}
f();`, machine.Config{})
	require.Error(t, err)
	assert.Contains(t, errOut, "[line 2] in f()")
	assert.Contains(t, errOut, "[line 4] in script")
}

func TestExecCompileErrorReturned(t *testing.T) {
	_, _, err := runSource(t, "1 +;", machine.Config{})
	require.Error(t, err)
	cerr, ok := err.(*compiler.Error)
	require.True(t, ok, "error type: %T", err)
	assert.NotEmpty(t, cerr.Diagnostics)
}

func TestExecCoreLibrary(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{"vec literal and index", "var a = [1, 2, 3]; print(a[0]); print(a[-1]);", "1\n3\n"},
		{"vec set item", "var a = [1, 2]; a[1] = 5; print(a);", "[1, 5]\n"},
		{"vec push pop len", "var a = []; a.push(1); a.push(2); print(a.len()); print(a.pop()); print(a.len());", "2\n2\n1\n"},
		{"vec slice", "var a = [1, 2, 3, 4]; print(a[1..3]);", "[2, 3]\n"},
		{"vec print", "print([1, \"x\", nil]);", "[1, x, nil]\n"},
		{"range len", "print((0..4).len()); print((4..0).len());", "4\n4\n"},
		{"range iteration", `
var it = (0..3).__iter__();
var v = it.__next__();
while (!(v == sentinel())) {
	print(v);
	v = it.__next__();
}
`, "0\n1\n2\n"},
		{"reverse range", `
var it = (2..0).__iter__();
var v = it.__next__();
while (!(v == sentinel())) {
	print(v);
	v = it.__next__();
}
`, "2\n1\n"},
		{"vec iteration", `
var it = [10, 20].__iter__();
var v = it.__next__();
while (!(v == sentinel())) {
	print(v);
	v = it.__next__();
}
`, "10\n20\n"},
		{"string len and chars", `print("hello".len()); print("héllo".count_chars());`, "5\n5\n"},
		{"string index", `print("hello"[1]); print("hello"[-1]);`, "e\no\n"},
		{"string slice", `print("hello"[1..3]);`, "el\n"},
		{"string iteration", `
var it = "ab".__iter__();
print(it.__next__());
print(it.__next__());
print(it.__next__() == sentinel());
`, "a\nb\ntrue\n"},
		{"hashmap", `
var m = HashMap();
m["a"] = 1;
m[2] = "two";
print(m["a"]);
print(m[2]);
print(m.has("a"));
print(m.has("b"));
print(m.len());
`, "1\ntwo\ntrue\nfalse\n2\n"},
		{"tuple", "var t = Tuple(1, 2, 3); print(t.len()); print(t[1]); print(t);", "3\n2\n(1, 2, 3)\n"},
		{"range constructor", "print(Range(1, 3));", "Range(1, 3)\n"},
		{"string constructor", `print(String(42) + "!");`, "42!\n"},
		{"static method via metaclass", "print(Vec.name()); print(Range.name());", "Vec\nRange\n"},
		{"type builtin", `print(type(1)); print(type("x")); print(type([])); print(type(nil));`,
			"number\nstring\nvec\nnil\n"},
		{"interning across concat", `print("ab" == "a" + "b");`, "true\n"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			out, errOut, err := runSource(t, c.src, machine.Config{})
			require.NoError(t, err, "stderr: %s", errOut)
			assert.Equal(t, c.want, out)
		})
	}
}

func TestExecClock(t *testing.T) {
	out, _, err := runSource(t, "print(clock() > 0);", machine.Config{})
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)
}

// gcChurn allocates heavily while keeping some values observable, so a
// buggy collector shows up as wrong output rather than a crash.
const gcChurn = `
class Node {
	fn init(v) { this.v = v; this.next = nil; }
}
var head = nil;
for (var i = 0; i < 50; i = i + 1) {
	var n = Node(i);
	n.next = head;
	n.self = n;
	head = n;
	var junk = "tmp${i}" + "!";
	var jv = [i, junk, 1..3];
}
var sum = 0;
var cur = head;
while (!(cur == nil)) {
	sum += cur.v;
	cur = cur.next;
}
print(sum);
print("done${sum}");
`

func TestExecStressGCEquivalence(t *testing.T) {
	plain, _, err := runSource(t, gcChurn, machine.Config{})
	require.NoError(t, err)

	stress, _, err := runSource(t, gcChurn, machine.Config{GCStress: true})
	require.NoError(t, err)

	assert.Equal(t, plain, stress)
	assert.Equal(t, "1225\ndone1225\n", plain)
}

// TestExecScripts runs the golden scripts in testdata/scripts and compares
// the produced output with the recorded .want files in testdata/results.
func TestExecScripts(t *testing.T) {
	scriptsDir := filepath.Join("testdata", "scripts")
	resultsDir := filepath.Join("testdata", "results")

	for _, fi := range filetest.SourceFiles(t, scriptsDir, ".nym") {
		fi := fi
		t.Run(fi.Name(), func(t *testing.T) {
			b, err := os.ReadFile(filepath.Join(scriptsDir, fi.Name()))
			require.NoError(t, err)

			out, _, err := runSource(t, string(b), machine.Config{})
			require.NoError(t, err)
			filetest.DiffOutput(t, fi, out, resultsDir, testUpdateExecTests)

			// stress mode must not change observable behaviour
			stressOut, _, err := runSource(t, string(b), machine.Config{GCStress: true})
			require.NoError(t, err)
			assert.Equal(t, out, stressOut)
		})
	}
}
