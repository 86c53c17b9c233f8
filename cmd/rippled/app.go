package main

import (
	"fmt"

	"github.com/go-ripple/ripple/pkg/core"
	"github.com/go-ripple/ripple/pkg/reactive"
)

// The demo application: a task list with an input row and per-task toggles,
// exercising keyed children, containers and callback dispatch.

type task struct {
	Title string
	Done  bool
}

type taskListState struct {
	reactive.State
	Tasks reactive.List[task]
	Draft reactive.Value[string]
}

var (
	column   = core.NativeContainer("column")
	row      = core.NativeContainer("row")
	input    = core.Native("input")
	button   = core.Native("button")
	checkbox = core.Native("checkbox")
)

func taskApp() *core.Component {
	taskRow := core.Define("taskRow", func(ctx *core.BuildContext) {
		title, _ := ctx.Props().Get("title")
		done, _ := ctx.Props().Get("done")
		onToggle, _ := ctx.Props().Get("onToggle")
		ctx.PlaceContainer(row, nil, func(ctx *core.BuildContext) {
			ctx.Place(checkbox, core.P("checked", done, "onChange", onToggle))
			ctx.Text(title.(string))
		})
	})

	return core.Define("taskList", func(ctx *core.BuildContext) {
		st := core.UseState(ctx, func() *taskListState {
			s := &taskListState{}
			s.Tasks.Append(task{Title: "try ripple"})
			return s
		})

		ctx.PlaceContainer(column, nil, func(ctx *core.BuildContext) {
			ctx.PlaceContainer(row, nil, func(ctx *core.BuildContext) {
				ctx.Place(input, core.P(
					"value", st.Draft.Get(),
					"onInput", func(text string) { st.Draft.Set(text) },
				))
				ctx.Place(button, core.P(
					"label", "Add",
					"onClick", func() {
						title := st.Draft.Peek()
						if title == "" {
							return
						}
						st.Tasks.Append(task{Title: title})
						st.Draft.Set("")
					},
				))
			})

			for i, item := range st.Tasks.Values() {
				i := i
				ctx.PlaceKeyed(taskRow, core.P(
					"title", item.Title,
					"done", item.Done,
					"onToggle", func(checked bool) {
						t := st.Tasks.Get(i)
						t.Done = checked
						st.Tasks.Set(i, t)
					},
				), fmt.Sprintf("%d-%s", i, item.Title))
			}

			remaining := 0
			for _, item := range st.Tasks.Values() {
				if !item.Done {
					remaining++
				}
			}
			ctx.Text(fmt.Sprintf("%d open", remaining))
		})
	})
}
