package entities

// Task is a unit of background work scheduled on the task manager.
type Task func()
