package core

// FindGobangMove searches the board for a line (row, column or diagonal)
// that is one piece short of being uniform, then picks a matching spare
// piece elsewhere on the board to move into the gap. Returns the position
// of the piece to remove and the gap to fill.
func FindGobangMove(board [][]int) (remove, fill [2]int, ok bool) {
	n := len(board)
	if n == 0 {
		return remove, fill, false
	}
	for _, row := range board {
		if len(row) != n {
			return remove, fill, false
		}
	}

	for _, line := range boardLines(n) {
		value, gap, found := almostUniform(board, line)
		if !found {
			continue
		}

		onLine := map[[2]int]bool{}
		for _, cell := range line {
			onLine[cell] = true
		}

		for r := 0; r < n; r++ {
			for c := 0; c < n; c++ {
				cell := [2]int{r, c}
				if board[r][c] == value && !onLine[cell] {
					return cell, gap, true
				}
			}
		}
	}
	return remove, fill, false
}

func boardLines(n int) [][][2]int {
	var lines [][][2]int

	for r := 0; r < n; r++ {
		line := make([][2]int, n)
		for c := 0; c < n; c++ {
			line[c] = [2]int{r, c}
		}
		lines = append(lines, line)
	}
	for c := 0; c < n; c++ {
		line := make([][2]int, n)
		for r := 0; r < n; r++ {
			line[r] = [2]int{r, c}
		}
		lines = append(lines, line)
	}

	diag := make([][2]int, n)
	anti := make([][2]int, n)
	for i := 0; i < n; i++ {
		diag[i] = [2]int{i, i}
		anti[i] = [2]int{i, n - 1 - i}
	}
	lines = append(lines, diag, anti)

	return lines
}

// almostUniform reports whether the line holds exactly one empty cell with
// every other cell sharing the same non-zero value.
func almostUniform(board [][]int, line [][2]int) (value int, gap [2]int, ok bool) {
	zeros := 0
	for _, cell := range line {
		v := board[cell[0]][cell[1]]
		if v == 0 {
			zeros++
			gap = cell
			continue
		}
		if value == 0 {
			value = v
		} else if v != value {
			return 0, gap, false
		}
	}
	return value, gap, zeros == 1 && value != 0
}
