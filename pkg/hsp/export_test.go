package hsp

// Collide files region r under the hash of c, as if the two had hashed
// to the same value.
func (l *List) Collide(c *Candidate, r Region) {
	h := hashIdent(identOf(c))
	l.seen[h] = append(l.seen[h], ident{r, c.Context})
}
