/*
Package engine computes simulation ticks.

The engine is a pure step function: given a model, the resource states and
the usage states of one tick, it produces the states of the next tick and the
set of usages that fired. It keeps no state between calls other than a cache of
compiled scripts, so identical inputs always give identical outputs.

# Evaluation order

Every tick runs four phases in a fixed order:

 1. Irregular events that are due fire and apply their body.
 2. Idle operations whose condition holds begin (has_triggered_before).
 3. Rules whose condition holds apply their body, in usage order.
 4. Operations apply the body_before of those that began this tick, then
    finish the ones whose delay elapsed and apply their body_after
    (has_triggered_after).

Writes made by one phase are visible to every later phase of the same tick.

# Scripting

Conditions are Lua expressions and bodies are Lua statements, run in a
sandboxed gopher-lua state that only exposes the base, string, table and math
libraries (without math.random). Each template parameter is bound to a table
holding the attributes of the resource passed by the usage. destroy(res)
removes a TEMPORAL resource from the simulation.
*/
package engine
