// Package reactive is a fine-grained reactive runtime: cells hold
// mutable state, memos and tasks derive values from other signals
// synchronously or asynchronously, sensors bridge push-driven external
// sources into the graph, and effects run side effects when the values
// they read change.
//
// # Core types
//
// Signal[T] is a writable root (see NewCell). ReadOnlySignal[T] is the
// read-only view every node — writable or derived — exposes through
// Read. Memo[T] and Task[T] derive a value from other signals by
// reading them inside their compute function; no dependency list is
// declared up front, it is discovered automatically by tracking which
// signals get read while the compute function runs. Sensor[T] has no
// compute function at all — an external start closure pushes values
// into it directly. EffectRef is a terminal consumer with no value of
// its own.
//
// # Example
//
//	firstName, _ := reactive.NewCell("Ada")
//	lastName, _ := reactive.NewCell("Lovelace")
//
//	fullName := reactive.NewMemo(func(prev string) string {
//	    first, _ := firstName.Read()
//	    last, _ := lastName.Read()
//	    return first + " " + last
//	})
//
//	eff := reactive.NewEffect(func() reactive.Disposer {
//	    name, _ := fullName.Read()
//	    fmt.Println("name:", name)
//	    return nil
//	})
//	defer eff.Stop()
//
//	firstName.Write("Grace") // effect re-runs, prints "name: Grace Lovelace"
//
// # Batching
//
// Batch groups multiple writes so dependent effects run once per batch
// rather than once per write:
//
//	reactive.Batch(func() {
//	    firstName.Write("Katherine")
//	    lastName.Write("Johnson")
//	})
//
// # Errors
//
// Read and Write return *Error, classified by Kind, with one exception:
// a Task's Read returns the error its compute function returned (or a
// plain error describing a recovered panic) unchanged. A Memo, Task, or
// Sensor that has no current value returns ErrUnset, checked with
// errors.Is rather than treated as a failure.
//
// # Scopes
//
// Scope gives effects and tasks a structured lifetime: disposing a
// Scope stops every effect and task registered under it. See Scope and
// EffectOptions.Owner / TaskOptions.Owner.
package reactive
